package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-booking/auth"
)

const (
	AgencyLoginPath   = "/admin/login"
	HotelierLoginPath = "/login"
	adminPrefix       = "/admin"
	dashboardPrefix   = "/dashboard"
	apiPrefix         = "/api"
)

// Decision is the gate's verdict for one path. Redirect is empty when the request may proceed.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

var allow = Decision{}

func redirectTo(path string) Decision { return Decision{Redirect: path} }

// DashboardPath is a hotelier's dashboard root.
func DashboardPath(hotelID string) string {
	return dashboardPrefix + "/" + hotelID
}

// Decide maps a page path and the caller's principal (nil when unauthenticated) to allow or redirect.
// Cross-tenant dashboard access is corrected to the caller's own dashboard rather than refused.
func Decide(path string, p auth.Principal) Decision {
	path = "/" + strings.Trim(path, "/")

	switch {
	case path == AgencyLoginPath:
		if _, ok := p.(auth.Agency); ok {
			return redirectTo(adminPrefix)
		}
		return allow

	case path == HotelierLoginPath:
		if h, ok := p.(auth.Hotelier); ok {
			return redirectTo(DashboardPath(h.HotelID))
		}
		return allow

	case hasSegmentPrefix(path, adminPrefix):
		if _, ok := p.(auth.Agency); ok {
			return allow
		}
		return redirectTo(AgencyLoginPath)

	case hasSegmentPrefix(path, dashboardPrefix):
		h, ok := p.(auth.Hotelier)
		if !ok {
			return redirectTo(HotelierLoginPath)
		}
		if hotelSegment(path) == h.HotelID {
			return allow
		}
		return redirectTo(DashboardPath(h.HotelID))
	}
	return allow
}

// hasSegmentPrefix matches prefix as whole path segments, so /administer is not under /admin.
func hasSegmentPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// hotelSegment returns the {hotelId} of /dashboard/{hotelId}/...
func hotelSegment(path string) string {
	rest := strings.TrimPrefix(path, dashboardPrefix+"/")
	if rest == path {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// PageGate applies Decide to page routes and answers with 302 when the caller is not allowed.
func PageGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		d := Decide(c.Request.URL.Path, PrincipalFrom(c))
		if !d.Allowed() {
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIGate guards /api/admin and /api/dashboard/:hotelId with the page rules of the matching page path.
// JSON clients get 401 with the page the browser should go to; the body never says why.
func APIGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		page := strings.TrimPrefix(c.Request.URL.Path, apiPrefix)
		d := Decide(page, PrincipalFrom(c))
		if !d.Allowed() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success":  false,
				"error":    "Not authorized",
				"redirect": d.Redirect,
			})
			return
		}
		c.Next()
	}
}
