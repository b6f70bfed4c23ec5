package global

import (
	"time"

	"SupportChat/tools"
	"SupportChat/tools/ids"
)

// AppConfig is the process-wide configuration, populated from the
// environment once at startup. Flags may override host/port (see main).
type AppConfig struct {
	Host string
	Port int

	MongoURI       string
	MongoDB        string
	RedisAddr      string // empty disables the presence mirror
	RedisPass      string
	RedisDB        int
	JWTSecret      string
	AllowedOrigins []string

	// Welcome policy for first-time user sessions.
	WelcomeText   string
	WelcomeSender string
	WelcomeDelay  time.Duration

	// Visibility windows for admin tooling.
	ConnectVisibility time.Duration
	MessageVisibility time.Duration

	// Sweep cadence.
	SessionSweepEvery time.Duration
	MessageSweepEvery time.Duration
	MessageRetention  time.Duration
}

var Config AppConfig

// Load reads the environment into Config. Defaults keep a dev instance
// runnable with nothing but a local mongod.
func Load() {
	Config = AppConfig{
		Host: tools.GetEnv("CHAT_HOST", "0.0.0.0"),
		Port: tools.GetEnvInt("CHAT_PORT", 3500),

		MongoURI:  tools.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:   tools.GetEnv("MONGODB_DATABASE", "supportchat"),
		RedisAddr: tools.GetEnv("REDIS_ADDR", ""),
		RedisPass: tools.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:   tools.GetEnvInt("REDIS_DB", 0),
		JWTSecret: tools.GetEnv("JWT_SECRET", ""),

		AllowedOrigins: tools.GetEnvList("ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:3500",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:3500",
			"http://localhost:3001",
		}),

		WelcomeText:   tools.GetEnv("WELCOME_TEXT", "خوش آمدید! چطور میتوانم امروز به شما کمک کنم؟"),
		WelcomeSender: tools.GetEnv("WELCOME_SENDER", "WhatsApp"),
		WelcomeDelay:  100 * time.Millisecond,

		ConnectVisibility: 24 * time.Hour,
		MessageVisibility: 48 * time.Hour,

		SessionSweepEvery: 25 * time.Hour,
		MessageSweepEvery: 7 * 24 * time.Hour,
		MessageRetention:  7 * 24 * time.Hour,
	}
}

func JWTSecret() []byte {
	return []byte(Config.JWTSecret)
}

func ConfigIds() {
	ids.SetNodeID(int64(tools.GetEnvInt("CHAT_NODE_ID", 1)))
}
