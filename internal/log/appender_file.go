package log

import "gopkg.in/natefinch/lumberjack.v2"

type FileAppenderOpt struct {
	Filename   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func (m *MultiWriter) AddFileAppender(options FileAppenderOpt) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,    // megabytes
		MaxBackups: options.MaxBackups, // number of backups
		MaxAge:     options.MaxAge,     // days
		Compress:   options.Compress,   // compress the backups
	}
	m.writers = append(m.writers, writer)
	m.closers = append(m.closers, writer)
	return m
}
