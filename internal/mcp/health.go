package mcp

import (
	"context"
	"time"
)

// HealthStatus reports the server's view of its own health and the remote
// connection.
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	AppID     string `json:"app_id"`
	Domain    string `json:"domain"`
	Kintone   string `json:"kintone"`
	CheckedAt string `json:"checked_at"`
}

// executeHealthCheck probes the remote app with a short deadline and
// reports overall status.
func (s *Server) executeHealthCheck(ctx context.Context) (interface{}, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "healthy",
		Uptime:    time.Since(s.startTime).String(),
		AppID:     s.cfg.Kintone.AppID,
		Domain:    s.cfg.Kintone.Domain,
		Kintone:   "reachable",
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := s.client.GetAppInfo(probeCtx); err != nil {
		status.Status = "degraded"
		status.Kintone = "unreachable: " + err.Error()
	}

	return textResult("Health:", status)
}
