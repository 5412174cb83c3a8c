package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID passed to Load.
// Val: raw JSON overlay for that device; omitted keys keep Default().
// -----------------------------------------------------------------------------

const cfgLCD185 = `{
  "name": "esp32s3-lcd-1.85"
}`

// The 1.85C variant runs the bus slower because of its longer FPC and
// loads the RTC crystal at 12.5 pF.
const cfgLCD185C = `{
  "name": "esp32s3-lcd-1.85c",
  "i2c": { "freq_hz": 100000, "sda": 11, "scl": 10, "retries": 2 },
  "clock": { "address": 81, "load_12pf": true },
  "reset": { "hold_ms": 10, "settle_ms": 150 }
}`

var embeddedConfigs = map[string][]byte{
	"lcd-1.85":  []byte(cfgLCD185),
	"lcd-1.85c": []byte(cfgLCD185C),
}
