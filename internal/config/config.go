package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	// Site identity used when building email content and deep links.
	SiteName string
	SiteURL  string

	// Mail transport. When SMTPHost is empty the service logs emails to
	// stdout instead of sending them.
	FromEmail    string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPImplicit bool // implicit TLS (port 465) instead of STARTTLS

	// Business calendar. All reminder date arithmetic runs in this location.
	Location    *time.Location
	WeekendDays []time.Weekday

	DailyReminderCap int
	CatchUp          bool // widen bucket triggers to cover missed runs

	// Local times (HH:MM, in Location) at which the deadline pass runs.
	PassTimes []string
	// Local time at which the overdue sweep runs.
	OverdueTime string

	LogRetentionDays int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",

		JWTSecret: mustGetenv("JWT_SECRET"),

		SiteName: getenv("SITE_NAME", "Task Portal"),
		SiteURL:  strings.TrimRight(getenv("SITE_URL", "http://localhost:8080"), "/"),

		FromEmail:    getenv("FROM_EMAIL", "noreply@localhost"),
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUser:     getenv("SMTP_USER", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPImplicit: getenv("SMTP_IMPLICIT_TLS", "false") == "true",

		DailyReminderCap: getenvInt("DAILY_REMINDER_CAP", 3),
		CatchUp:          getenv("REMINDER_CATCH_UP", "true") == "true",

		OverdueTime: getenv("OVERDUE_PASS_TIME", "10:00"),

		LogRetentionDays: getenvInt("LOG_RETENTION_DAYS", 90),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	loc, err := time.LoadLocation(getenv("BUSINESS_TIMEZONE", "Asia/Riyadh"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	for _, p := range strings.Split(getenv("DEADLINE_PASS_TIMES", "09:00"), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := time.Parse("15:04", p); err != nil {
			return Config{}, fmt.Errorf("invalid DEADLINE_PASS_TIMES entry %q: %w", p, err)
		}
		cfg.PassTimes = append(cfg.PassTimes, p)
	}

	// Friday/Saturday weekend unless overridden (0=Sunday .. 6=Saturday).
	for _, d := range strings.Split(getenv("WEEKEND_DAYS", "5,6"), ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 || n > 6 {
			return Config{}, fmt.Errorf("invalid WEEKEND_DAYS entry %q", d)
		}
		cfg.WeekendDays = append(cfg.WeekendDays, time.Weekday(n))
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
