package powerwall

import "time"

// Reading is one poll of the gateway. Battery power is positive while charging
// and negative while discharging; grid power is positive while importing and
// negative while exporting.
type Reading struct {
	SolarPowerWatts     int32
	HousePowerWatts     int32
	BatteryPowerWatts   int32
	GridPowerWatts      int32
	BatteryLevelPercent float64
	Timestamp           time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type meter struct {
	InstantPower float64 `json:"instant_power"`
}

type metersAggregatesResponse struct {
	Site    meter `json:"site"`
	Battery meter `json:"battery"`
	Load    meter `json:"load"`
	Solar   meter `json:"solar"`
}

type batteryLevelResponse struct {
	Percentage float64 `json:"percentage"`
}

// The gateway keeps 5% of the battery in reserve; the app shows the usable
// 0-95% as 0-100%.
const reservedBatteryPercent = 5.0

func NormalizeBatteryLevel(raw float64) float64 {
	return (raw / 0.95) - (reservedBatteryPercent / 0.95)
}

// The gateway reports battery discharge as positive, Reading flips it.
func newReading(aggregates *metersAggregatesResponse, level *batteryLevelResponse, now time.Time) *Reading {
	return &Reading{
		SolarPowerWatts:     int32(aggregates.Solar.InstantPower),
		HousePowerWatts:     int32(aggregates.Load.InstantPower),
		BatteryPowerWatts:   -int32(aggregates.Battery.InstantPower),
		GridPowerWatts:      int32(aggregates.Site.InstantPower),
		BatteryLevelPercent: NormalizeBatteryLevel(level.Percentage),
		Timestamp:           now,
	}
}
