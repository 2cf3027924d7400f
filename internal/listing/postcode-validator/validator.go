// internal/listing/postcode-validator/validator.go
package postcodevalidator

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "findmysecurity/internal/common/errors"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/metrics"
	"findmysecurity/internal/models"
)

const (
	MessageInvalid     = "Invalid UK postcode"
	MessageUnavailable = "Could not validate postcode"
)

// Normalize trims, collapses inner whitespace and upper-cases a postcode.
func Normalize(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), " "))
}

// Validator checks postcodes against a Lookup. Submit is the keystroke API: it
// debounces input and applies only the result of the most recently issued check.
type Validator struct {
	config *Config
	lookup Lookup
	logger logger.Logger

	mu         sync.Mutex
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	current    models.PostcodeValidation
	settled    chan struct{}
	pending    bool
	onResult   func(models.PostcodeValidation)
	closed     bool
}

func NewValidator(config *Config, lookup Lookup, log logger.Logger) *Validator {
	return &Validator{
		config:  config,
		lookup:  lookup,
		logger:  logger.ForComponent(log, "postcode-validator"),
		current: models.PostcodeValidation{IsValid: true},
	}
}

// OnResult registers fn to receive every applied result. fn runs on the
// validator's goroutine and must not block.
func (v *Validator) OnResult(fn func(models.PostcodeValidation)) {
	v.mu.Lock()
	v.onResult = fn
	v.mu.Unlock()
}

// Validate performs one synchronous check. It never fails: lookup problems are
// reported through the returned message.
func (v *Validator) Validate(ctx context.Context, raw string) models.PostcodeValidation {
	postcode := Normalize(raw)
	if postcode == "" {
		metrics.PostcodeValidations.WithLabelValues("empty").Inc()
		return models.PostcodeValidation{IsValid: true}
	}

	ok, err := v.lookup.Validate(ctx, postcode)
	if err != nil {
		metrics.PostcodeValidations.WithLabelValues("error").Inc()
		stdErr := apperrors.NewPostcodeLookupFailedError(postcode, err)
		v.logger.Warn("postcode lookup failed", map[string]interface{}{
			"code":      stdErr.Code,
			"details":   stdErr.Details,
			"retryable": stdErr.Retryable,
		})
		return models.PostcodeValidation{IsValid: false, ErrorMessage: stdErr.Message}
	}
	if !ok {
		metrics.PostcodeValidations.WithLabelValues("invalid").Inc()
		return models.PostcodeValidation{IsValid: false, ErrorMessage: MessageInvalid}
	}
	metrics.PostcodeValidations.WithLabelValues("valid").Inc()
	return models.PostcodeValidation{IsValid: true}
}

// Submit schedules a check of raw after the debounce delay and returns its generation.
func (v *Validator) Submit(raw string) uint64 {
	return v.submit(raw, v.config.Debounce)
}

// SubmitNow schedules a check without waiting for input to settle.
func (v *Validator) SubmitNow(raw string) uint64 {
	return v.submit(raw, 0)
}

func (v *Validator) submit(raw string, delay time.Duration) uint64 {
	v.mu.Lock()
	if v.closed {
		gen := v.generation
		v.mu.Unlock()
		return gen
	}

	v.generation++
	gen := v.generation
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if !v.pending {
		v.settled = make(chan struct{})
		v.pending = true
	}

	if Normalize(raw) == "" {
		v.mu.Unlock()
		v.apply(gen, models.PostcodeValidation{IsValid: true})
		return gen
	}

	ctx, cancel := context.WithTimeout(context.Background(), delay+v.config.Timeout)
	v.cancel = cancel
	v.timer = time.AfterFunc(delay, func() {
		defer cancel()
		if !v.isLatest(gen) {
			return
		}
		v.apply(gen, v.Validate(ctx, raw))
	})
	v.mu.Unlock()
	return gen
}

func (v *Validator) isLatest(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return gen == v.generation
}

// apply stores result when gen is still the latest issued check.
func (v *Validator) apply(gen uint64, result models.PostcodeValidation) {
	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		metrics.StaleResponsesDiscarded.WithLabelValues("postcode-validator").Inc()
		v.logger.Debug("discarding stale postcode result", map[string]interface{}{
			"generation": gen,
			"latest":     v.generation,
		})
		return
	}
	v.current = result
	settled := v.release()
	cb := v.onResult
	v.mu.Unlock()

	if cb != nil {
		cb(result)
	}
	if settled != nil {
		close(settled)
	}
}

// release clears the pending flag and returns the channel waiters block on.
// Callers hold v.mu.
func (v *Validator) release() chan struct{} {
	if !v.pending {
		return nil
	}
	v.pending = false
	return v.settled
}

// Current returns the most recently applied result. Before any check it is valid.
func (v *Validator) Current() models.PostcodeValidation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Wait blocks until the latest submitted check has been applied or ctx ends.
func (v *Validator) Wait(ctx context.Context) error {
	v.mu.Lock()
	if !v.pending {
		v.mu.Unlock()
		return nil
	}
	settled := v.settled
	v.mu.Unlock()

	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any scheduled or in-flight check. Later submissions are ignored.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.generation++
	if v.timer != nil {
		v.timer.Stop()
	}
	if v.cancel != nil {
		v.cancel()
	}
	if settled := v.release(); settled != nil {
		close(settled)
	}
}
