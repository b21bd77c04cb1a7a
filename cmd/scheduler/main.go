package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkovalev/dayboard/internal/logger"
	"github.com/mkovalev/dayboard/internal/rabbit"
	"github.com/mkovalev/dayboard/internal/storage"
	"github.com/mkovalev/dayboard/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
)

var configFile string

const checkTimeout = time.Minute

func newNotification(due storage.DueReminder) rabbit.Notification {
	return rabbit.Notification{
		EventID:       due.EventID,
		Title:         due.Title,
		OwnerID:       due.OwnerID,
		StartTime:     due.StartTime,
		MinutesBefore: due.MinutesBefore,
		Method:        due.Method,
	}
}

func init() {
	flag.StringVar(&configFile, "config", "./configs/scheduler_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		return
	}
	defer r.Close()

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		stor.Close(ctx)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	startTime := time.Now().Add(-time.Minute)
	endTime := time.Now()
	checkTicker := time.NewTicker(checkTimeout)
	for {
		log.Debugf("check due reminders: %s - %s", startTime, endTime)
		due, err := stor.DueReminders(ctx, startTime, endTime)
		if err != nil {
			log.Errorf("failed to get due reminders: %s", err)
		}
		for _, d := range due {
			log.Debugf("publish notification: %v", d)
			data, err := json.Marshal(newNotification(d))
			if err != nil {
				log.Errorf("failed to marshal notification: %s", err)
				continue
			}
			if err := r.Publish(data); err != nil {
				log.Errorf("failed to publish notification: %s", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-checkTicker.C:
			startTime = endTime
			endTime = time.Now()
		}
	}
}
