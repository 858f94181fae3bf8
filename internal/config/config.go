package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port       string
	DBPath     string
	UploadDir  string
	LogFile    string
	Env        string
	SessionKey string

	SheetsID      string
	DriveFolderID string
	ProductsSheet string
	HistorySheet  string
	KeyFile       string
	ServiceEmail  string
	ServiceKey    string
	ImageStore    string
	MirrorTimeout time.Duration
	MaxBodyBytes  int

	S3Bucket        string
	S3Region        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PublicBaseURL string

	RedisURL string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "5000")
	v.SetDefault("DB_PATH", "inventory.db")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SESSION_SECRET", "kho_secret_key_vip_123")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "service-account.json")
	v.SetDefault("SHEET_PRODUCTS", "TonKho")
	v.SetDefault("SHEET_HISTORY", "LichSu")
	v.SetDefault("IMAGE_STORE", "drive")
	v.SetDefault("MIRROR_TIMEOUT", "60s")
	v.SetDefault("MAX_BODY_BYTES", 10<<20)
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:       v.GetString("PORT"),
		DBPath:     v.GetString("DB_PATH"),
		UploadDir:  v.GetString("UPLOAD_DIR"),
		LogFile:    v.GetString("LOG_FILE"),
		Env:        v.GetString("APP_ENV"),
		SessionKey: v.GetString("SESSION_SECRET"),

		SheetsID:      v.GetString("GOOGLE_SHEETS_ID"),
		DriveFolderID: v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
		ProductsSheet: v.GetString("SHEET_PRODUCTS"),
		HistorySheet:  v.GetString("SHEET_HISTORY"),
		KeyFile:       v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),
		ServiceEmail:  v.GetString("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		ServiceKey:    unescapeKey(v.GetString("GOOGLE_PRIVATE_KEY")),
		ImageStore:    strings.ToLower(v.GetString("IMAGE_STORE")),
		MirrorTimeout: v.GetDuration("MIRROR_TIMEOUT"),
		MaxBodyBytes:  v.GetInt("MAX_BODY_BYTES"),

		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Region:        v.GetString("S3_REGION"),
		S3AccessKeyID:   v.GetString("S3_ACCESS_KEY_ID"),
		S3SecretKey:     v.GetString("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL: v.GetString("S3_PUBLIC_BASE_URL"),

		RedisURL: v.GetString("REDIS_URL"),
	}
	if cfg.MirrorTimeout <= 0 {
		cfg.MirrorTimeout = time.Minute
	}

	return cfg, nil
}

// unescapeKey restores newlines in a PEM stored on one line.
func unescapeKey(s string) string { return strings.ReplaceAll(s, `\n`, "\n") }

// GoogleCredentials returns the service-account key JSON (from the key file)
// or the email/private key pair. ok is false when neither is available.
func (c Config) GoogleCredentials() (keyJSON []byte, email, key string, ok bool) {
	if c.KeyFile != "" {
		if b, err := os.ReadFile(c.KeyFile); err == nil {
			return b, "", "", true
		}
	}
	if c.ServiceEmail != "" && c.ServiceKey != "" {
		return nil, c.ServiceEmail, c.ServiceKey, true
	}
	return nil, "", "", false
}

// ExportURL is the xlsx download link of the mirrored spreadsheet.
func (c Config) ExportURL() string {
	if c.SheetsID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + c.SheetsID + "/export?format=xlsx"
}
