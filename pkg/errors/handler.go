// Package errors provides error handling and recovery mechanisms for the bot.
// It implements an error counter with automatic shutdown on excessive errors.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyPremiumGo/pkg/logger"
	"github.com/goccy/go-json"
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    int32
	webhookURL    string
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	exitFunc      func(code int)
	httpClient    *http.Client
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := newErrorHandler(webhookURL, shutdownFunc)
	h.start()
	return h
}

func newErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exitFunc:      os.Exit,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
	}
}

// start begins the error monitoring goroutines
func (h *ErrorHandler) start() {
	// Error reset goroutine - resets error count every 5 seconds
	go func() {
		ticker := time.NewTicker(h.resetInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				atomic.StoreInt32(&h.errorCount, 0)
			case <-h.stopChan:
				return
			}
		}
	}()

	// Error check goroutine - checks for excessive errors
	go func() {
		ticker := time.NewTicker(h.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if h.overThreshold() {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *ErrorHandler) overThreshold() bool {
	return atomic.LoadInt32(&h.errorCount) > h.maxErrors
}

// shutdown reports the error storm, runs the shutdown hook and exits
func (h *ErrorHandler) shutdown() {
	start := time.Now()
	logger.Warn("Se detectó un número demasiado alto de errores", "CRITICAL")
	logger.Warn("Apagando...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exitFunc(1)
}

// Stop stops the error monitoring goroutines
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
}

// ErrorCount returns the errors counted in the current window
func (h *ErrorHandler) ErrorCount() int32 {
	return atomic.LoadInt32(&h.errorCount)
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := atomic.AddInt32(&h.errorCount, 1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Debug("Unhandled Panic/Catch", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	embed := map[string]interface{}{
		"author": map[string]string{
			"name": fmt.Sprintf("Error %s", data.Error),
		},
		"description": data.Message,
		"color":       0xFF0000, // Red
		"footer": map[string]string{
			"text": "PancyPremium Go",
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create webhook request: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent ErrorReport to Webhook, Status: %d", resp.StatusCode), "AntiCrash")
}

// handlePanic routes a recovered value to the global handler when present
func handlePanic(r interface{}) {
	if handler != nil {
		handler.HandlePanic(r)
	} else {
		logger.Error(fmt.Sprintf("Panic recovered (no handler): %v", r), "AntiCrash")
	}
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			handlePanic(r)
		}
	}
}

// Guard runs fn and turns a panic into an error, counting it like any
// other recovered panic.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			handlePanic(r)
			err = fmt.Errorf("panic recuperado: %v", r)
		}
	}()
	return fn()
}
