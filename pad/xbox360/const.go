package xbox360

// Button bitmasks of the wired Xbox 360 input report (XInput layout).
const (
	ButtonDPadUp    = 0x0001
	ButtonDPadDown  = 0x0002
	ButtonDPadLeft  = 0x0004
	ButtonDPadRight = 0x0008
	ButtonStart     = 0x0010
	ButtonBack      = 0x0020
	ButtonLThumb    = 0x0040
	ButtonRThumb    = 0x0080
	ButtonLShoulder = 0x0100
	ButtonRShoulder = 0x0200
	ButtonGuide     = 0x0400
	ButtonA         = 0x1000
	ButtonB         = 0x2000
	ButtonX         = 0x4000
	ButtonY         = 0x8000
)

const (
	ReportTypeInput = 0x00
	ReportTypeLED   = 0x01
	InputReportSize = 20
)

// rangeFixValue is what some third-party pads (8BitDo) send at full negative
// deflection instead of -32768.
const rangeFixValue = -32512

// LED patterns for the ring of light, "flash then on" variants.
const (
	LEDPatternOff = 0x00
	LEDPattern1   = 0x06
	LEDPattern2   = 0x07
	LEDPattern3   = 0x08
	LEDPattern4   = 0x09
)
