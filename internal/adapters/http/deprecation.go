package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with a sunset date.
type DeprecatedRoute struct {
	Path        string    // Exact request path
	SunsetDate  time.Time // Date when the endpoint will be removed
	Alternative string    // Recommended replacement endpoint (optional)
}

// DeprecationMiddleware adds Deprecation, Sunset, Link, and Warning
// headers to deprecated endpoints so clients can migrate before the
// sunset date.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	bySunset := make(map[string]DeprecatedRoute, len(deprecated))
	for _, d := range deprecated {
		bySunset[d.Path] = d
	}

	return func(c *fiber.Ctx) error {
		d, ok := bySunset[c.Path()]
		if !ok {
			return c.Next()
		}

		// RFC 8594 Deprecation and Sunset headers
		c.Set("Deprecation", "true")
		c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

		// RFC 8288 Link header pointing at the replacement
		if d.Alternative != "" {
			c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
		}

		days := time.Until(d.SunsetDate).Hours() / 24
		c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))

		return c.Next()
	}
}
