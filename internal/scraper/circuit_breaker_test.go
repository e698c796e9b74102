package scraper

import (
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	host := "www.landsearch.com"

	for i := 0; i < 2; i++ {
		cb.RecordFailure(host)
	}
	if !cb.CanProceed(host) {
		t.Fatal("breaker must stay closed below the threshold")
	}

	cb.RecordFailure(host)
	if cb.CanProceed(host) {
		t.Fatal("breaker must open at the threshold")
	}
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	host := "www.landsearch.com"

	cb.RecordFailure(host)
	cb.RecordFailure(host)
	cb.RecordSuccess(host)
	cb.RecordFailure(host)
	cb.RecordFailure(host)

	if !cb.CanProceed(host) {
		t.Error("success must reset the consecutive failure count")
	}
}

func TestCircuitBreakerIsPerHost(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Hour)

	cb.RecordFailure("www.landsearch.com")
	if cb.CanProceed("www.landsearch.com") {
		t.Error("failing host must be blocked")
	}
	if !cb.CanProceed("www.landwatch.com") {
		t.Error("other hosts must be unaffected")
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	host := "www.landsearch.com"

	cb.RecordFailure(host)
	if cb.CanProceed(host) {
		t.Fatal("breaker must be open")
	}

	time.Sleep(20 * time.Millisecond)
	if !cb.CanProceed(host) {
		t.Error("breaker must half-open after the reset timeout")
	}
}
