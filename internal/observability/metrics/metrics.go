// Package metrics provides a small process-wide recorder with a plain-text
// exposition endpoint. It tracks HTTP traffic by status class alongside the
// domain counters that matter for a best-effort persistence model: every
// failed document write shows up here even though users are never told.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Recorder accumulates counters. The zero value is not usable; construct
// with NewRecorder or use Default.
type Recorder struct {
	mu              sync.Mutex
	requestsByClass map[string]uint64
	persists        uint64
	persistFailures uint64
	mailSent        uint64
	mailFallbacks   uint64
	loginThrottled  uint64
}

var (
	defaultRecorder     *Recorder
	defaultRecorderOnce sync.Once
)

// Default returns the shared process recorder.
func Default() *Recorder {
	defaultRecorderOnce.Do(func() {
		defaultRecorder = NewRecorder()
	})
	return defaultRecorder
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{requestsByClass: make(map[string]uint64)}
}

// IncRequest counts a finished HTTP request under its status class.
func (r *Recorder) IncRequest(status int) {
	if r == nil {
		return
	}
	class := "unknown"
	if status >= 100 && status < 600 {
		class = fmt.Sprintf("%dxx", status/100)
	}
	r.mu.Lock()
	r.requestsByClass[class]++
	r.mu.Unlock()
}

// ObservePersist counts a document write attempt and its outcome.
func (r *Recorder) ObservePersist(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.persists++
	if err != nil {
		r.persistFailures++
	}
	r.mu.Unlock()
}

// IncMailSent counts a verification email delivered via the provider.
func (r *Recorder) IncMailSent() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.mailSent++
	r.mu.Unlock()
}

// IncMailFallback counts a verification link that was logged instead of sent.
func (r *Recorder) IncMailFallback() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.mailFallbacks++
	r.mu.Unlock()
}

// IncLoginThrottled counts a login attempt rejected by the rate limiter.
func (r *Recorder) IncLoginThrottled() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.loginThrottled++
	r.mu.Unlock()
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	RequestsByClass map[string]uint64
	Persists        uint64
	PersistFailures uint64
	MailSent        uint64
	MailFallbacks   uint64
	LoginThrottled  uint64
}

// Snapshot copies the current counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	byClass := make(map[string]uint64, len(r.requestsByClass))
	for class, count := range r.requestsByClass {
		byClass[class] = count
	}
	return Snapshot{
		RequestsByClass: byClass,
		Persists:        r.persists,
		PersistFailures: r.persistFailures,
		MailSent:        r.mailSent,
		MailFallbacks:   r.mailFallbacks,
		LoginThrottled:  r.loginThrottled,
	}
}

// Handler serves the counters in a line-oriented text format.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snapshot := r.Snapshot()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		classes := make([]string, 0, len(snapshot.RequestsByClass))
		for class := range snapshot.RequestsByClass {
			classes = append(classes, class)
		}
		sort.Strings(classes)
		for _, class := range classes {
			fmt.Fprintf(w, "yumetv_http_requests_total{class=%q} %d\n", class, snapshot.RequestsByClass[class])
		}
		fmt.Fprintf(w, "yumetv_document_persists_total %d\n", snapshot.Persists)
		fmt.Fprintf(w, "yumetv_document_persist_failures_total %d\n", snapshot.PersistFailures)
		fmt.Fprintf(w, "yumetv_verification_mail_sent_total %d\n", snapshot.MailSent)
		fmt.Fprintf(w, "yumetv_verification_mail_fallbacks_total %d\n", snapshot.MailFallbacks)
		fmt.Fprintf(w, "yumetv_login_throttled_total %d\n", snapshot.LoginThrottled)
	})
}

// ResponseRecorder wraps a ResponseWriter to capture the final status code
// for logging and request counting.
type ResponseRecorder struct {
	http.ResponseWriter
	status int
}

// NewResponseRecorder wraps w; the status defaults to 200 until WriteHeader
// is called.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the status before delegating.
func (r *ResponseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Status returns the recorded status code.
func (r *ResponseRecorder) Status() int {
	return r.status
}
