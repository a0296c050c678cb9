package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryPolicy defines exponential backoff for one class of operation.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryPolicies returns the policies registered by NewErrorRecoveryManager.
func DefaultRetryPolicies() map[string]*RetryPolicy {
	return map[string]*RetryPolicy{
		"database_connect": {
			MaxRetries:    5,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
		"redis_connect": {
			MaxRetries:    3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
		"schema_migration": {
			MaxRetries:    2,
			InitialDelay:  250 * time.Millisecond,
			MaxDelay:      time.Second,
			BackoffFactor: 2.0,
		},
	}
}

var defaultRetryPolicy = RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      5 * time.Second,
	BackoffFactor: 2.0,
	JitterEnabled: true,
}

// ErrorRecoveryManager retries named operations according to their policy.
// It guards startup work such as connecting to the persistent tier; request
// paths degrade instead of retrying.
type ErrorRecoveryManager struct {
	mu            sync.RWMutex
	retryPolicies map[string]*RetryPolicy
	logger        *logrus.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

func NewErrorRecoveryManager(logger *logrus.Logger) *ErrorRecoveryManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &ErrorRecoveryManager{
		retryPolicies: DefaultRetryPolicies(),
		logger:        logger,
		sleep:         sleepContext,
	}
}

// RegisterRetryPolicy adds or replaces the policy for name.
func (erm *ErrorRecoveryManager) RegisterRetryPolicy(name string, policy *RetryPolicy) {
	erm.mu.Lock()
	defer erm.mu.Unlock()
	erm.retryPolicies[name] = policy
}

func (erm *ErrorRecoveryManager) policy(name string) RetryPolicy {
	erm.mu.RLock()
	defer erm.mu.RUnlock()
	if p := erm.retryPolicies[name]; p != nil {
		return *p
	}
	return defaultRetryPolicy
}

// ExecuteWithRetry runs operation until it succeeds, the policy is
// exhausted, or ctx is done. The last operation error is returned.
func (erm *ErrorRecoveryManager) ExecuteWithRetry(ctx context.Context, operationName string, operation func(ctx context.Context) error) error {
	policy := erm.policy(operationName)
	start := time.Now()
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				erm.logger.WithFields(logrus.Fields{
					"operation": operationName,
					"attempts":  attempt + 1,
					"duration":  time.Since(start),
				}).Info("Operation recovered after retry")
			}
			return nil
		}
		lastErr = err
		if attempt == policy.MaxRetries {
			break
		}

		erm.logger.WithFields(logrus.Fields{
			"operation": operationName,
			"attempt":   attempt + 1,
			"error":     err.Error(),
			"delay":     delay,
		}).Warn("Operation failed, retrying")

		if err := erm.sleep(ctx, calculateDelay(delay, policy)); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	erm.logger.WithFields(logrus.Fields{
		"operation": operationName,
		"attempts":  policy.MaxRetries + 1,
		"duration":  time.Since(start),
		"error":     lastErr.Error(),
	}).Error("Operation failed after all retries")
	return lastErr
}

// calculateDelay adds up to 10% jitter when enabled.
func calculateDelay(base time.Duration, policy RetryPolicy) time.Duration {
	if !policy.JitterEnabled || base <= 0 {
		return base
	}
	return base + time.Duration(rand.Int63n(int64(base)/10+1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
