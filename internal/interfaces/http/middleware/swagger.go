package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/erp/poimport/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SwaggerConfig restricts who may read the API docs.
type SwaggerConfig struct {
	AllowedIPs []string // single IPs or CIDRs, empty allows all
	// Auth runs before the docs when set, usually the JWT gate
	Auth gin.HandlerFunc
}

// SwaggerProtection gates the /api-docs routes. Unparseable AllowedIPs
// entries are ignored.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	var ips []net.IP
	var nets []*net.IPNet
	for _, s := range cfg.AllowedIPs {
		if strings.Contains(s, "/") {
			if _, n, err := net.ParseCIDR(s); err == nil {
				nets = append(nets, n)
			}
		} else if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		}
	}

	return func(c *gin.Context) {
		if len(cfg.AllowedIPs) > 0 && !ipAllowed(net.ParseIP(c.ClientIP()), ips, nets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden,
				"Access to API documentation is restricted",
				GetRequestID(c),
			))
			return
		}
		if cfg.Auth != nil {
			if cfg.Auth(c); c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

func ipAllowed(ip net.IP, ips []net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range ips {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
