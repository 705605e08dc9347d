package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Values of the result label of auth_attempts_total.
const (
	resultSuccess            = "success"
	resultInvalidCredentials = "invalid_credentials"
	resultUnavailable        = "directory_unavailable"
	resultAccessDenied       = "access_denied"
	resultError              = "error"
)

var (
	attemptsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Number of authentication attempts, differentiated by result.",
		},
		[]string{"result", "source"},
	)

	groupCacheTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "ldap_group_cache_total",
			Help: "Number of group cache lookups, differentiated by hit or miss.",
		},
		[]string{"result"},
	)
)
