package domain

import "solarspy/pkg/powerwall"

func ReadingToUpdateEvents(r *powerwall.Reading) []any {
	var events []any

	kilowatts := func(id string, watts int32) FloatSensorUpdateEvent {
		return FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: id,
			},
			Value:    float64(watts) / 1000,
			Decimals: 3,
		}
	}

	events = append(events, kilowatts(SENSOR_ID_SOLAR_POWER, r.SolarPowerWatts))
	events = append(events, kilowatts(SENSOR_ID_HOUSE_POWER, r.HousePowerWatts))
	events = append(events, kilowatts(SENSOR_ID_BATTERY_POWER, r.BatteryPowerWatts))
	events = append(events, kilowatts(SENSOR_ID_GRID_POWER, r.GridPowerWatts))
	// Battery level
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_LEVEL,
		},
		Value:    r.BatteryLevelPercent,
		Decimals: 1,
	})

	return events
}

func DisplaySwitchUpdateEvent(active bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_DISPLAY,
		},
		Value: active,
	}
}

func SessionErrorUpdateEvent(kind ErrorKind) any {
	return TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SESSION_ERROR,
		},
		Value: string(kind),
	}
}
