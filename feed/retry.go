package feed

import (
	"math/rand"
	"time"

	"github.com/pingcap/errors"

	"github.com/feedkv/feedkv/kv/config"
)

// RetryPolicy bounds the optimistic commit loop. MaxRetries 0 retries
// forever, which matches the behavior of an uncapped watch-and-retry loop;
// a positive cap turns exhaustion into ErrTooManyConflicts.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func PolicyFromConfig(rc config.Retry) RetryPolicy {
	return RetryPolicy{
		MaxRetries:  rc.MaxRetries,
		BaseBackoff: time.Duration(rc.BaseBackoffMs) * time.Millisecond,
		MaxBackoff:  time.Duration(rc.MaxBackoffMs) * time.Millisecond,
	}
}

// Backoff sleeps before retry number attempt+1, with exponential growth
// capped at MaxBackoff and full jitter. It returns ErrTooManyConflicts when
// the cap is exhausted.
func (p RetryPolicy) Backoff(attempt int) error {
	if p.MaxRetries > 0 && attempt+1 >= p.MaxRetries {
		return errors.WithStack(ErrTooManyConflicts)
	}
	if p.BaseBackoff <= 0 {
		return nil
	}
	backoff := p.BaseBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff <= 0 || (p.MaxBackoff > 0 && backoff >= p.MaxBackoff) {
			break
		}
	}
	if backoff <= 0 || (p.MaxBackoff > 0 && backoff > p.MaxBackoff) {
		backoff = p.MaxBackoff
	}
	if backoff <= 0 {
		backoff = p.BaseBackoff
	}
	time.Sleep(time.Duration(rand.Int63n(int64(backoff)) + 1))
	return nil
}
