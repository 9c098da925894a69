package obs

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo describes the running binary and the token policy it was started with.
type BuildInfo struct {
	Version    string
	Commit     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "enterprise_pro_build_info",
			Help: "Build of the auth API; always 1, labelled with version, commit, Go version and token issuer.",
		},
		[]string{"version", "commit", "go_version", "issuer"},
	)

	tokenTTL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "auth_token_ttl_seconds",
			Help: "Configured token lifetime by token type.",
		},
		[]string{"type"},
	)
)

// InitBuildInfo registers the build and token policy gauges once and sets them.
func InitBuildInfo(info BuildInfo) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo, tokenTTL)
	})
	buildInfo.WithLabelValues(info.Version, info.Commit, runtime.Version(), info.Issuer).Set(1)
	tokenTTL.WithLabelValues("access").Set(info.AccessTTL.Seconds())
	tokenTTL.WithLabelValues("refresh").Set(info.RefreshTTL.Seconds())
}
