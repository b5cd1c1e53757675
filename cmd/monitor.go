package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

// monitor publishes run progress over HTTP via expvar. The draw counter is
// fed by counting wrappers around the sample writers.
type monitor struct {
	addr    string
	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	Chains       *expvar.Int
	Warmup       *expvar.Int
	Samples      *expvar.Int
	DrawsWritten *expvar.Int
}

// Start begins the monitor
func (m *monitor) Start() error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	m.info = expvar.NewMap("hammock-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: m.addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.Chains = expvar.NewInt("Chain-Count")
	m.Warmup = expvar.NewInt("Warmup-Iterations")
	m.Samples = expvar.NewInt("Sampling-Iterations")
	m.DrawsWritten = expvar.NewInt("Draws-Written")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
