package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"phlebcare-backend/internal/models"
)

// Config is everything the process reads from the environment, collected
// once at startup and passed down explicitly.
type Config struct {
	Port      string
	DBDSN     string
	RedisAddr string

	MidtransServerKey  string
	MidtransClientKey  string
	MidtransProduction bool

	TelrStoreID  int
	TelrAuthKey  string
	TelrAPIURL   string
	TelrTestMode bool

	DistanceAPIURL string
	DistanceAPIKey string

	FirebaseCredentials string

	// ReleaseOnAssignFailure: whether a failed pleb assignment after a
	// successful hold releases the hold and cancels the order.
	ReleaseOnAssignFailure bool
}

func Load() Config {
	storeID, _ := strconv.Atoi(os.Getenv("TELR_STORE_ID"))

	return Config{
		Port:                   envOr("PORT", "8080"),
		DBDSN:                  buildDSN(),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		MidtransServerKey:      os.Getenv("MIDTRANS_SERVER_KEY"),
		MidtransClientKey:      os.Getenv("MIDTRANS_CLIENT_KEY"),
		MidtransProduction:     os.Getenv("MIDTRANS_MODE") == "production",
		TelrStoreID:            storeID,
		TelrAuthKey:            os.Getenv("TELR_AUTH_KEY"),
		TelrAPIURL:             os.Getenv("TELR_API_URL"),
		TelrTestMode:           os.Getenv("TELR_MODE") != "production",
		DistanceAPIURL:         os.Getenv("DISTANCE_API_URL"),
		DistanceAPIKey:         os.Getenv("DISTANCE_API_KEY"),
		FirebaseCredentials:    os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		ReleaseOnAssignFailure: os.Getenv("RELEASE_ON_ASSIGN_FAILURE") == "true",
	}
}

func buildDSN() string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		envOr("DB_USER", "root"),
		os.Getenv("DB_PASS"),
		envOr("DB_HOST", "127.0.0.1"),
		envOr("DB_PORT", "3306"),
		envOr("DB_NAME", "phlebcare"),
	)
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// ConnectDB opens the shared connection pool and migrates the schema. The
// returned handle is injected into every component; nothing reads a global.
func ConnectDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Migrate creates/updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CommissionEntry{},
		&models.LabTest{},
		&models.ClinicService{},
		&models.ShippingType{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.PlebProfile{},
		&models.AvailabilitySlot{},
		&models.ServiceRange{},
		&models.PlebJob{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusLog{},
		&models.PhlebBooking{},
		&models.PaymentToken{},
		&models.PostcodeZone{},
		&models.ZoneRate{},
	)
}
