package dualsense

import "encoding/binary"

// fixedpoint.go companions (device/dualshock4/helpers.go, const.go in the
// teacher) use named scale-factor constants plus a small derivation helper;
// the calibration engine follows the same shape but derives its factors
// from the DualSense's own Feature Report 0x05 instead of a fixed constant.

// speedScale has the same value as gyroNumerBase; deriveGyroAxis scales
// the report's speed plus/minus sum by gyroNumerBase, and nothing in this
// package reads speedScale.
const speedScale = 1024

// accelScale is the fixed accelerometer full-scale numerator base (matches
// the Linux HID-PlayStation driver's own normalisation).
const accelScale = 2 * 8192

const gyroNumerBase = 1024

// axisCalibration is one axis's {bias, sens_numer, sens_denom} triple.
type axisCalibration struct {
	bias  int32
	numer int32
	denom int32
}

// identityAxis is used whenever an axis's denominator would be zero; it
// passes raw samples through unchanged (bias 0, numer == denom).
var identityAxis = axisCalibration{bias: 0, numer: 32767, denom: 32767}

func (a axisCalibration) apply(raw int16) int16 {
	denom := a.denom
	if denom == 0 {
		a = identityAxis
		denom = a.denom
	}
	v := (int64(raw) - int64(a.bias)) * int64(a.numer) / int64(denom)
	return clampI16(v)
}

func clampI16(v int64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Calibration is the immutable per-axis calibration record derived from
// Feature Report 0x05. Valid is false when derivation failed on any axis,
// in which case raw sample values are passed through unchanged by the
// decoder.
type Calibration struct {
	Valid bool

	GyroX, GyroY, GyroZ    axisCalibration
	AccelX, AccelY, AccelZ axisCalibration
}

// DeriveCalibration builds a Calibration from a 41-byte Feature Report 0x05
// read off the DualSense. report[0] is the report ID and is ignored here;
// callers are expected to have already checked it.
//
// Layout (offsets relative to the start of the report body, i.e. after the
// 1-byte report ID), matching the Linux HID-PlayStation driver's gyro/accel
// calibration report:
//
//	0-1   gyro pitch bias
//	2-3   gyro pitch plus
//	4-5   gyro pitch minus
//	6-7   gyro yaw bias
//	8-9   gyro yaw plus
//	10-11 gyro yaw minus
//	12-13 gyro roll bias
//	14-15 gyro roll plus
//	16-17 gyro roll minus
//	18-19 gyro speed plus
//	20-21 gyro speed minus
//	22-23 accel X plus
//	24-25 accel X minus
//	26-27 accel Y plus
//	28-29 accel Y minus
//	30-31 accel Z plus
//	32-33 accel Z minus
func DeriveCalibration(report []byte) Calibration {
	if len(report) < CalibrationReportLen {
		return Calibration{Valid: false}
	}
	b := report[1:]

	s16 := func(off int) int16 { return int16(binary.LittleEndian.Uint16(b[off : off+2])) }

	gyroPitchBias := s16(0)
	gyroPitchPlus := s16(2)
	gyroPitchMinus := s16(4)
	gyroYawBias := s16(6)
	gyroYawPlus := s16(8)
	gyroYawMinus := s16(10)
	gyroRollBias := s16(12)
	gyroRollPlus := s16(14)
	gyroRollMinus := s16(16)
	speedPlus := s16(18)
	speedMinus := s16(20)

	accelXPlus := s16(22)
	accelXMinus := s16(24)
	accelYPlus := s16(26)
	accelYMinus := s16(28)
	accelZPlus := s16(30)
	accelZMinus := s16(32)

	c := Calibration{Valid: true}

	var ok bool
	c.GyroX, ok = deriveGyroAxis(gyroPitchBias, gyroPitchPlus, gyroPitchMinus, speedPlus, speedMinus)
	c.Valid = c.Valid && ok
	c.GyroY, ok = deriveGyroAxis(gyroYawBias, gyroYawPlus, gyroYawMinus, speedPlus, speedMinus)
	c.Valid = c.Valid && ok
	c.GyroZ, ok = deriveGyroAxis(gyroRollBias, gyroRollPlus, gyroRollMinus, speedPlus, speedMinus)
	c.Valid = c.Valid && ok

	c.AccelX, ok = deriveAccelAxis(accelXPlus, accelXMinus)
	c.Valid = c.Valid && ok
	c.AccelY, ok = deriveAccelAxis(accelYPlus, accelYMinus)
	c.Valid = c.Valid && ok
	c.AccelZ, ok = deriveAccelAxis(accelZPlus, accelZMinus)
	c.Valid = c.Valid && ok

	return c
}

// deriveGyroAxis implements spec.md 4.1: numer = (speed_plus+speed_minus)*1024,
// denom = plus-minus, bias verbatim. ok is false (identity fallback) when
// the denominator is zero.
func deriveGyroAxis(bias, plus, minus, speedPlus, speedMinus int16) (axisCalibration, bool) {
	denom := int32(plus) - int32(minus)
	if denom == 0 {
		return identityAxis, false
	}
	numer := (int32(speedPlus) + int32(speedMinus)) * gyroNumerBase
	return axisCalibration{bias: int32(bias), numer: numer, denom: denom}, true
}

// deriveAccelAxis implements spec.md 4.1: bias = plus-(plus-minus)/2,
// numer = 2*8192, denom = plus-minus.
func deriveAccelAxis(plus, minus int16) (axisCalibration, bool) {
	denom := int32(plus) - int32(minus)
	if denom == 0 {
		return identityAxis, false
	}
	bias := int32(plus) - denom/2
	return axisCalibration{bias: bias, numer: accelScale, denom: denom}, true
}

// ApplyGyroX and the other Apply* methods calibrate a raw motion sample
// for their axis. When the calibration record as a whole is invalid,
// callers should skip them entirely and emit the raw sample (see decode.go).
func (c Calibration) ApplyGyroX(raw int16) int16  { return c.GyroX.apply(raw) }
func (c Calibration) ApplyGyroY(raw int16) int16  { return c.GyroY.apply(raw) }
func (c Calibration) ApplyGyroZ(raw int16) int16  { return c.GyroZ.apply(raw) }
func (c Calibration) ApplyAccelX(raw int16) int16 { return c.AccelX.apply(raw) }
func (c Calibration) ApplyAccelY(raw int16) int16 { return c.AccelY.apply(raw) }
func (c Calibration) ApplyAccelZ(raw int16) int16 { return c.AccelZ.apply(raw) }
