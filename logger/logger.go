package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log = logrus.New()

// Init configures the shared logger: JSON lines to a rotating file under
// dataDir/logs plus human-readable output on stderr.
func Init(dataDir, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}

// L returns the shared logger.
func L() *logrus.Logger {
	return log
}

// WithVideo returns an entry tagged with the video id.
func WithVideo(videoID string) *logrus.Entry {
	return log.WithField("video_id", videoID)
}

// WithJob returns an entry tagged with job and video ids.
func WithJob(jobID, videoID string) *logrus.Entry {
	return log.WithFields(logrus.Fields{"job_id": jobID, "video_id": videoID})
}
