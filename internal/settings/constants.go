package settings

// DB config keys and defaults for fare policy.
const (
	// MaxFareKey is the DB config key for the per-transaction fare ceiling.
	MaxFareKey = "MAX_FARE"
	// TopUpCeilingKey is the DB config key for the per-call top-up ceiling.
	TopUpCeilingKey = "TOPUP_CEILING"
	// FreshnessWindowHoursKey bounds device timestamp drift in hours.
	FreshnessWindowHoursKey = "FRESHNESS_WINDOW_HOURS"
	// QrTokenTTLSecondsKey is the QR token lifetime in seconds.
	QrTokenTTLSecondsKey = "QR_TOKEN_TTL_SECONDS"
	// InitialBalanceKey is the balance granted to newly issued cards.
	InitialBalanceKey = "INITIAL_BALANCE"

	// DefaultMaxFare is the fallback fare ceiling, currency units.
	DefaultMaxFare = 10.0
	// DefaultTopUpCeiling is the fallback top-up ceiling, currency units.
	DefaultTopUpCeiling = 100.0
	// DefaultFreshnessWindowHours is the fallback drift window in hours.
	DefaultFreshnessWindowHours = 24
	// DefaultQrTokenTTLSeconds is the fallback QR token lifetime.
	DefaultQrTokenTTLSeconds = 60
	// DefaultInitialBalance is the fallback initial card balance.
	DefaultInitialBalance = 10.0
)
