package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr  string
	DBUrl string

	TokenSecret     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CodeTTL        time.Duration
	CodeLength     int
	CodeDigitsOnly bool
	MaxActiveCodes int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	ProjectTitle string

	DocumentDir      string
	DocumentCooldown time.Duration

	Workers int
	Debug   bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBUrl, "db-url", "pollwise.sqlite", "path to SQLite3 DB file (default pollwise.sqlite)")

	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token signing and verification")
	var accessTTL, refreshTTL uint
	flag.UintVar(&accessTTL, "access-token-ttl", 120, "access token TTL in minutes (default 120)")
	flag.UintVar(&refreshTTL, "refresh-token-ttl", 15, "refresh token TTL in days (default 15)")

	var codeTTL uint
	flag.UintVar(&codeTTL, "code-ttl", 10, "verification code TTL in minutes (default 10)")
	flag.IntVar(&cfg.CodeLength, "code-length", 6, "verification code length (default 6)")
	flag.BoolVar(&cfg.CodeDigitsOnly, "code-digits-only", true, "restrict verification codes to digits")
	flag.IntVar(&cfg.MaxActiveCodes, "code-max-active", 3, "max unexpired codes per email (default 3)")

	flag.StringVar(&cfg.SMTPHost, "smtp-host", "", "SMTP server host (empty disables outgoing mail)")
	flag.IntVar(&cfg.SMTPPort, "smtp-port", 465, "SMTP server port (default 465)")
	flag.StringVar(&cfg.SMTPUser, "smtp-user", "", "SMTP auth username")
	flag.StringVar(&cfg.SMTPPassword, "smtp-password", "", "SMTP auth password")
	flag.StringVar(&cfg.MailFrom, "mail-from", "", "sender address for outgoing mail")
	flag.StringVar(&cfg.ProjectTitle, "project-title", "Pollwise", "name used in outgoing mail subjects")

	flag.StringVar(&cfg.DocumentDir, "document-dir", "documents", "directory for exported survey documents")
	var cooldown uint
	flag.UintVar(&cooldown, "document-cooldown", 30, "minutes to wait between document refreshes (default 30)")

	flag.IntVar(&cfg.Workers, "workers", 4, "background task worker count (default 4)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.AccessTokenTTL = time.Duration(accessTTL) * time.Minute
	cfg.RefreshTokenTTL = time.Duration(refreshTTL) * 24 * time.Hour
	cfg.CodeTTL = time.Duration(codeTTL) * time.Minute
	cfg.DocumentCooldown = time.Duration(cooldown) * time.Minute

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
