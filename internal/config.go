package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host           string `env:"HOST,default=0.0.0.0"`
	Port           int    `env:"PORT,default=5000"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
	LogPretty bool   `env:"LOG_PRETTY,default=false"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTimeout       time.Duration `env:"AUTH_TIMEOUT,default=5s"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=2000"`

	// global: vote updates reach every connection. audience: updates on a
	// private message stay inside its author-and-recipients audience.
	VoteBroadcastScope string `env:"VOTE_BROADCAST_SCOPE,default=global"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	MetricInterval time.Duration `env:"METRIC_INTERVAL,default=30s"`
	GCInterval     time.Duration `env:"GC_INTERVAL,default=5m"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CensoredWordList splits the comma-separated env value; an empty value
// disables moderation entirely.
func (c Config) CensoredWordList() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if trimmed := strings.TrimSpace(w); trimmed != "" {
			words = append(words, trimmed)
		}
	}
	return words
}

// CharacterRune validates that the replacement is exactly one rune.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"character replacement must be a single character, got %q", str)
	}
	return r[0], nil
}
