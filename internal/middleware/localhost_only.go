package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LocalhostOnly rejects requests that do not come from loopback or one of
// the allowed IPs / CIDR ranges. The watcher's state endpoints expose the
// wallet's balances and must not be reachable from outside by default.
type LocalhostOnly struct {
	logger   logrus.FieldLogger
	exact    []net.IP
	networks []*net.IPNet
}

// NewLocalhostOnly parses allowedIPs. Invalid entries are logged and skipped.
func NewLocalhostOnly(logger logrus.FieldLogger, allowedIPs []string) *LocalhostOnly {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l := &LocalhostOnly{logger: logger}
	for _, allowed := range allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "/") {
			_, ipNet, err := net.ParseCIDR(allowed)
			if err != nil {
				logger.WithError(err).WithField("allowed", allowed).Warn("Invalid CIDR in allowedIPs")
				continue
			}
			l.networks = append(l.networks, ipNet)
			continue
		}
		ip := net.ParseIP(allowed)
		if ip == nil {
			logger.WithField("allowed", allowed).Warn("Invalid IP in allowedIPs")
			continue
		}
		l.exact = append(l.exact, ip)
	}
	return l
}

// Restrict restricts access to localhost and the allowed IPs.
func (l *LocalhostOnly) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if l.isAllowedIP(clientIP) {
			c.Next()
			return
		}
		l.logger.WithFields(logrus.Fields{
			"client_ip": clientIP,
			"path":      c.Request.URL.Path,
		}).Warn("IP not allowed - rejecting access")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access restricted to localhost"})
	}
}

func isLocalhost(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip == "localhost"
	}
	return parsed.IsLoopback()
}

// isAllowedIP checks localhost first, then exact IPs, then CIDR ranges.
func (l *LocalhostOnly) isAllowedIP(ip string) bool {
	if isLocalhost(ip) {
		return true
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, allowed := range l.exact {
		if allowed.Equal(parsed) {
			return true
		}
	}
	for _, n := range l.networks {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
