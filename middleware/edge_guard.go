package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/annazecevic/subscription-tracker/dto"
	"github.com/annazecevic/subscription-tracker/logger"
	"github.com/gin-gonic/gin"
)

type GuardMode string

const (
	GuardModeLive   GuardMode = "LIVE"
	GuardModeDryRun GuardMode = "DRY_RUN"
)

const (
	RuleShield    = "shield"
	RuleBot       = "detect_bot"
	RuleRateLimit = "token_bucket"
)

type EdgeGuardConfig struct {
	Mode        GuardMode
	Shield      *Shield
	Bots        *BotDetector
	RateLimiter *RateLimiter
	Stats       StatsRecorder
}

type verdict struct {
	rule       string
	status     int
	message    string
	event      string
	retryAfter time.Duration
	details    map[string]interface{}
}

// EdgeGuard screens requests before they reach authentication: shield patterns,
// bot detection and a per-IP token bucket, in that order. In DRY_RUN mode denials
// are logged but the request continues.
type EdgeGuard struct {
	cfg EdgeGuardConfig
}

func NewEdgeGuard(cfg EdgeGuardConfig) *EdgeGuard {
	if cfg.Mode != GuardModeDryRun {
		cfg.Mode = GuardModeLive
	}
	return &EdgeGuard{cfg: cfg}
}

func (g *EdgeGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		for _, v := range g.evaluate(c, ip) {
			g.record(c, ip, v.rule, false)

			fields := logger.Fields("ip", ip, "rule", v.rule, "mode", string(g.cfg.Mode), "path", c.Request.URL.Path)
			for k, val := range v.details {
				fields[k] = val
			}

			if g.cfg.Mode == GuardModeDryRun {
				logger.Warn(v.event, "Edge guard would deny request (dry run)", fields)
				continue
			}

			logger.Security(v.event, "Edge guard denied request", fields)
			if v.retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(v.retryAfter.Seconds()))))
			}
			c.AbortWithStatusJSON(v.status, dto.Response{Success: false, Message: v.message})
			return
		}

		g.record(c, ip, "", true)
		c.Next()
	}
}

// evaluate runs the rules in order. In LIVE mode it stops at the first denial.
func (g *EdgeGuard) evaluate(c *gin.Context, ip string) []verdict {
	var out []verdict
	stop := func() bool { return len(out) > 0 && g.cfg.Mode == GuardModeLive }

	if g.cfg.Shield != nil {
		if attack := g.cfg.Shield.Inspect(c.Request.URL.Path, c.Request.URL.RawQuery); attack != "" {
			out = append(out, verdict{
				rule:    RuleShield,
				status:  http.StatusForbidden,
				message: "Access denied",
				event:   logger.EventShieldTriggered,
				details: logger.Fields("attack", attack),
			})
		}
	}
	if stop() {
		return out
	}

	if g.cfg.Bots != nil {
		if denied, category := g.cfg.Bots.Denied(c.Request.UserAgent()); denied {
			out = append(out, verdict{
				rule:    RuleBot,
				status:  http.StatusForbidden,
				message: "Bot detected",
				event:   logger.EventBotDetected,
				details: logger.Fields("category", string(category), "user_agent", c.Request.UserAgent()),
			})
		}
	}
	if stop() {
		return out
	}

	if g.cfg.RateLimiter != nil {
		if ok, retryAfter := g.cfg.RateLimiter.Allow(ip); !ok {
			out = append(out, verdict{
				rule:       RuleRateLimit,
				status:     http.StatusTooManyRequests,
				message:    "Rate limit exceeded",
				event:      logger.EventRateLimited,
				retryAfter: retryAfter,
			})
		}
	}

	return out
}

func (g *EdgeGuard) record(c *gin.Context, ip, rule string, allowed bool) {
	if g.cfg.Stats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
	defer cancel()

	err := g.cfg.Stats.Record(ctx, GuardEvent{
		Key:     ip,
		Rule:    rule,
		Allowed: allowed,
		Method:  c.Request.Method,
		Path:    c.FullPath(),
		At:      time.Now(),
	})
	if err != nil {
		logger.Warn(logger.EventGeneral, "Failed to record edge guard decision", logger.Fields("error", err.Error()))
	}
}
