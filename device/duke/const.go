package duke

// Digital button bitmasks (report byte 2)
const (
	ButtonDPadUp    = 0x01
	ButtonDPadDown  = 0x02
	ButtonDPadLeft  = 0x04
	ButtonDPadRight = 0x08
	ButtonStart     = 0x10
	ButtonBack      = 0x20
	ButtonLThumb    = 0x40
	ButtonRThumb    = 0x80
)

const (
	VendorID  = 0x045e
	ProductID = 0x0202

	InputReportSize  = 0x14
	OutputReportSize = 0x06

	inEndpoint  = 1 // 0x81
	outEndpoint = 2 // 0x02
)

// XID vendor and HID class requests seen on EP0.
const (
	reqGetCapabilities = 0x01
	reqGetDescriptor   = 0x06
	reqHIDGetReport    = 0x01
	reqHIDSetReport    = 0x09

	xidDescriptorValue = 0x4200
	reportInput        = 0x0100
	reportOutput       = 0x0200
)
