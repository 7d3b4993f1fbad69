package duke

import (
	"encoding/binary"
	"io"
)

// InputState is the pad state served on the interrupt IN endpoint.
// Analog buttons are 0-255 pressure values.
type InputState struct {
	Buttons uint8

	A, B, X, Y   uint8
	Black, White uint8
	L, R         uint8

	LX, LY int16
	RX, RY int16
}

// BuildReport encodes the 20-byte Duke input report.
//
//	 0: 0x00  - Report ID
//	 1: 0x14  - Length
//	 2: digital buttons
//	 3: reserved
//	 4-11: A B X Y Black White L R
//	12-19: LX LY RX RY (little-endian int16)
func (s *InputState) BuildReport() []byte {
	b := make([]byte, InputReportSize)
	b[1] = InputReportSize
	b[2] = s.Buttons
	b[4], b[5], b[6], b[7] = s.A, s.B, s.X, s.Y
	b[8], b[9] = s.Black, s.White
	b[10], b[11] = s.L, s.R
	binary.LittleEndian.PutUint16(b[12:14], uint16(s.LX))
	binary.LittleEndian.PutUint16(b[14:16], uint16(s.LY))
	binary.LittleEndian.PutUint16(b[16:18], uint16(s.RX))
	binary.LittleEndian.PutUint16(b[18:20], uint16(s.RY))
	return b
}

// RumbleState is the motor request from the console. The wire report carries
// 16-bit magnitudes; only the high bytes are kept.
type RumbleState struct {
	Left  uint8
	Right uint8
}

// UnmarshalBinary decodes the 6-byte output report `00 06 lL lH rL rH`.
func (r *RumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < OutputReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Left = data[3]
	r.Right = data[5]
	return nil
}

// MarshalBinary encodes the output report.
func (r *RumbleState) MarshalBinary() ([]byte, error) {
	return []byte{0x00, OutputReportSize, 0x00, r.Left, 0x00, r.Right}, nil
}
