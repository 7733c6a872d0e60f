// Copyright (c) 2025, The meshsim Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the log-level for what happens in the simulation as a whole.
type Level int8

const (
	TraceLevel   Level = 5
	DebugLevel   Level = 4
	InfoLevel    Level = 3
	WarnLevel    Level = 2
	ErrorLevel   Level = 1
	FatalLevel   Level = 0
	OffLevel     Level = -1
	MinLevel           = OffLevel
	DefaultLevel       = InfoLevel
)

var (
	cfg          zap.Config
	zaplogger    *zap.Logger
	currentLevel Level
	zapLevels    = []zapcore.Level{zapcore.FatalLevel + 1, zapcore.FatalLevel, zapcore.ErrorLevel,
		zapcore.WarnLevel, zapcore.InfoLevel, zapcore.DebugLevel, zapcore.DebugLevel}
)

func init() {
	cfgJson := []byte(`{
	"level": "debug",
	"outputPaths": ["stderr"],
	"errorOutputPaths": ["stderr"],
	"encoding": "console",
	"encoderConfig": {
		"messageKey": "message",
		"levelKey": "level",
		"levelEncoder": "lowercase"
	}
}`)
	currentLevel = DefaultLevel

	if err := json.Unmarshal(cfgJson, &cfg); err != nil {
		panic(err)
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	rebuildLoggerFromCfg()
}

// SetLevel sets the log level.
func SetLevel(lv Level) {
	currentLevel = lv
}

// GetLevel gets the current log level.
func GetLevel() Level {
	return currentLevel
}

// ParseLevel parses a log level name as used on the command line.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "off", "none":
		return OffLevel, nil
	default:
		return DefaultLevel, fmt.Errorf("unknown log level: %s", s)
	}
}

// SetOutput sets the output writer(s),
// e.g. logger.SetOutput([]string{"stderr", "meshsim.log"}).
func SetOutput(outputs []string) {
	cfg.OutputPaths = outputs
	rebuildLoggerFromCfg()
}

func rebuildLoggerFromCfg() {
	if newLogger, err := cfg.Build(); err == nil {
		if zaplogger != nil {
			_ = zaplogger.Sync()
		}
		zaplogger = newLogger
	} else {
		panic(err)
	}
}

func getMessage(template string, fmtArgs []interface{}) string {
	if len(fmtArgs) == 0 {
		return template
	}
	if template != "" {
		return fmt.Sprintf(template, fmtArgs...)
	}
	if len(fmtArgs) == 1 {
		if str, ok := fmtArgs[0].(string); ok {
			return str
		}
	}
	return fmt.Sprint(fmtArgs...)
}

// Logf outputs a formatted log message at the specified level.
func Logf(level Level, format string, args []interface{}) {
	if level > currentLevel {
		return
	}
	timeStr := time.Now().Format("2006-01-02 15:04:05.000") + " - "
	zaplogger.Log(zapLevels[level-MinLevel], timeStr+getMessage(format, args))
}

// Println prints a message for the user to stdout, without logging fields.
func Println(msg string) {
	_, _ = fmt.Fprint(os.Stdout, msg+"\n")
}

func Tracef(format string, args ...interface{}) {
	Logf(TraceLevel, format, args)
}

func Debugf(format string, args ...interface{}) {
	Logf(DebugLevel, format, args)
}

func Infof(format string, args ...interface{}) {
	Logf(InfoLevel, format, args)
}

func Warnf(format string, args ...interface{}) {
	Logf(WarnLevel, format, args)
}

func Errorf(format string, args ...interface{}) {
	Logf(ErrorLevel, format, args)
}

// TraceError prints the stack and the error.
func TraceError(format string, args ...interface{}) {
	Errorf(string(debug.Stack()))
	Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	Logf(FatalLevel, format, args)
	os.Exit(1)
}

func Panicf(format string, args ...interface{}) {
	msg := getMessage(format, args)
	Logf(FatalLevel, msg, nil)
	panic(msg)
}

func Error(err error) {
	if err != nil {
		Errorf("%v", err)
	}
}

func PanicIfError(err error, args ...interface{}) {
	if err != nil {
		if len(args) > 0 {
			Panicf("%v", args...)
		}
		Panicf("%v", err)
	}
}

func AssertTrue(cond bool, args ...interface{}) {
	if !cond {
		if len(args) > 0 {
			if format, ok := args[0].(string); ok {
				Panicf("assert failed: "+format, args[1:]...)
			}
			Panicf("assert failed: %v", args...)
		}
		Panicf("assert failed")
	}
}

func AssertFalse(cond bool, args ...interface{}) {
	AssertTrue(!cond, args...)
}

func AssertNil(v interface{}, args ...interface{}) {
	AssertTrue(isNil(v), args...)
}

func AssertNotNil(v interface{}, args ...interface{}) {
	AssertTrue(!isNil(v), args...)
}

// isNil reports whether v is nil, including a typed nil pointer, map,
// slice, channel or func held in the interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
