package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/pquerna/otp/totp"
)

// startHTTP launches the control API for /report, /refresh and /healthz.
func (svc *Service) startHTTP(ctx context.Context) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/report", svc.handleReport)
		mux.HandleFunc("/refresh", svc.handleRefresh)
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "ok")
		})
		log.Printf("[scanner] control API on %s (/report, /refresh, /healthz)", svc.cfg.APIAddr)
		if err := http.ListenAndServe(svc.cfg.APIAddr, mux); err != nil {
			log.Printf("[scanner] control API error: %v", err)
		}
	}()
}

// handleReport serves the latest cycle report. ?symbol=X narrows the
// response to one instrument entry.
func (svc *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	report := svc.LastReport()
	if report == nil {
		http.Error(w, "no cycle completed yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		entry, ok := report.Entries[sym]
		if !ok {
			http.Error(w, "unknown symbol: "+sym, http.StatusNotFound)
			return
		}
		w.Write(entry.JSON())
		return
	}
	w.Write(report.JSON())
}

// handleRefresh schedules an immediate cycle. Requires a valid TOTP code
// (X-TOTP-Code header or ?code=) when SCAN_TOTP_SECRET is set; without a
// secret the endpoint is disabled outright.
func (svc *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if svc.cfg.TOTPSecret == "" {
		http.Error(w, "refresh disabled: no SCAN_TOTP_SECRET configured", http.StatusForbidden)
		return
	}
	code := r.Header.Get("X-TOTP-Code")
	if code == "" {
		code = r.URL.Query().Get("code")
	}
	if !totp.Validate(code, svc.cfg.TOTPSecret) {
		http.Error(w, "invalid TOTP code", http.StatusUnauthorized)
		return
	}

	status := "scheduled"
	select {
	case svc.refreshCh <- struct{}{}:
	default:
		status = "already pending"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
