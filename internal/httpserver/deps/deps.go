package deps

import (
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/logger"
	"github.com/MrSnakeDoc/catalogd/internal/tenant"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time // for testing, defaults to time.Now
	AllowedHosts  []string         // Host headers allowed to access the server
	AllowedCIDRS  []string         // IPs allowed to access the API and ops endpoints
	TrustProxy    bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Registry      *tenant.Registry // per-tenant catalog stores
	DefaultTenant string           // tenant used when X-Tenant-ID is absent
	SyncTrigger   chan struct{}    // Channel to trigger a manual mirror sync (nil if disabled)
	RateBurst     int              // mutation requests allowed in a burst, per client
	RatePerMin    int              // sustained mutation requests per minute, per client
}
