package metrics

import (
	"sync/atomic"
	"time"
)

// Metric names recorded by the collector.
const (
	MetricInstall           = "install"
	MetricUpdate            = "update"
	MetricUninstall         = "uninstall"
	MetricReload            = "reload"
	MetricPolicyRejection   = "policy_rejection"
	MetricVersionConflict   = "version_conflict"
	MetricEscalation        = "permissions_escalation"
	MetricExternalUninstall = "external_uninstall"
	MetricInstallError      = "install_error"
)

// Snapshot is one recorded metric observation.
type Snapshot struct {
	Metric      string            `json:"metric"`
	ExtensionID string            `json:"extension_id"`
	Value       int64             `json:"value"`
	Labels      map[string]string `json:"labels,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// counters holds the live in-process tallies.
type counters struct {
	installs           atomic.Int64
	updates            atomic.Int64
	uninstalls         atomic.Int64
	reloads            atomic.Int64
	policyRejections   atomic.Int64
	versionConflicts   atomic.Int64
	escalations        atomic.Int64
	externalUninstalls atomic.Int64
	installErrors      atomic.Int64
}

// Totals is a point-in-time copy of the collector's counters.
type Totals struct {
	Installs           int64     `json:"installs"`
	Updates            int64     `json:"updates"`
	Uninstalls         int64     `json:"uninstalls"`
	Reloads            int64     `json:"reloads"`
	PolicyRejections   int64     `json:"policy_rejections"`
	VersionConflicts   int64     `json:"version_conflicts"`
	Escalations        int64     `json:"permissions_escalations"`
	ExternalUninstalls int64     `json:"external_uninstalls"`
	InstallErrors      int64     `json:"install_errors"`
	StartTime          time.Time `json:"start_time"`
}
