package domain

// Device groups entities in Home Assistant. ViaDevice names the device that
// relays this one, if any.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, duration, total_increasing
	DeviceClass       string // power, battery, connectivity
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	// DisplayPrecision is the number of decimals Home Assistant shows; nil
	// leaves it to the frontend.
	DisplayPrecision *int
}

// GenericSwitch is a command entity; ON and OFF map to control commands.
type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}
