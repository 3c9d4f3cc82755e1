// Package profile carries FIT global profile knowledge: message numbers and
// names, default field-name mappings, and per-field scale/offset
// declarations. The decoder itself never depends on this package; callers
// plug it in where friendly names or scaled values are wanted.
package profile

import (
	"fmt"
	"strconv"
	"strings"

	"example.com/fitscan/internal/fit"
)

// Global message numbers for the message kinds this module knows by name.
const (
	MsgFileID     uint16 = 0
	MsgSession    uint16 = 18
	MsgLap        uint16 = 19
	MsgRecord     uint16 = 20
	MsgEvent      uint16 = 21
	MsgDeviceInfo uint16 = 23
	MsgWorkout    uint16 = 26
	MsgCourse     uint16 = 31
	MsgCoursePt   uint16 = 32
	MsgActivity   uint16 = 34
	MsgHrv        uint16 = 78
	MsgLength     uint16 = 101
	MsgHr         uint16 = 132
)

var messageNames = map[uint16]string{
	MsgFileID:     "file_id",
	1:             "capabilities",
	2:             "device_settings",
	3:             "user_profile",
	7:             "zones_target",
	12:            "sport",
	15:            "goal",
	MsgSession:    "session",
	MsgLap:        "lap",
	MsgRecord:     "record",
	MsgEvent:      "event",
	MsgDeviceInfo: "device_info",
	MsgWorkout:    "workout",
	27:            "workout_step",
	28:            "schedule",
	30:            "weight_scale",
	MsgCourse:     "course",
	MsgCoursePt:   "course_point",
	33:            "totals",
	MsgActivity:   "activity",
	35:            "software",
	49:            "file_creator",
	51:            "blood_pressure",
	55:            "monitoring",
	72:            "training_file",
	MsgHrv:        "hrv",
	MsgLength:     "length",
	103:           "monitoring_info",
	127:           "connectivity",
	128:           "weather_conditions",
	MsgHr:         "hr",
	142:           "segment_lap",
	145:           "memo_glob",
	160:           "gps_metadata",
	162:           "timestamp_correlation",
	164:           "gyroscope_data",
	165:           "accelerometer_data",
	206:           "field_description",
	207:           "developer_data_id",
	208:           "magnetometer_data",
	209:           "barometer_data",
	225:           "set",
	227:           "stress_level",
	285:           "jump",
	317:           "climb_pro",
}

var messageNumbers = func() map[string]uint16 {
	m := make(map[string]uint16, len(messageNames))
	for num, name := range messageNames {
		m[name] = num
	}
	return m
}()

// MessageName returns the profile name for a global message number, or
// "global_<n>" when the number is not in the profile.
func MessageName(num uint16) string {
	if name, ok := messageNames[num]; ok {
		return name
	}
	return fmt.Sprintf("global_%d", num)
}

// ResolveMessageType maps a selector to a global message number. Accepted
// forms: a profile name ("record"), "global_<n>", or a bare decimal number.
func ResolveMessageType(selector string) (uint16, error) {
	sel := strings.ToLower(strings.TrimSpace(selector))
	if sel == "" {
		return 0, fmt.Errorf("empty message type selector")
	}
	if num, ok := messageNumbers[sel]; ok {
		return num, nil
	}
	numStr := sel
	if strings.HasPrefix(sel, "global_") {
		numStr = sel[len("global_"):]
	}
	n, err := strconv.ParseUint(numStr, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown message type %q", selector)
	}
	return uint16(n), nil
}

// FieldNames returns the default field-number-to-name mapping for a global
// message, or nil when the profile has none.
func FieldNames(msgNum uint16) map[uint8]string {
	switch msgNum {
	case MsgRecord:
		return recordFields
	case MsgSession:
		return sessionFields
	case MsgLap:
		return lapFields
	case MsgFileID:
		return fileIDFields
	case MsgActivity:
		return activityFields
	default:
		return nil
	}
}

// ColumnMapping returns the default rename mapping in output-column form
// ("field_253" -> "timestamp") for a global message.
func ColumnMapping(msgNum uint16) map[string]string {
	fields := FieldNames(msgNum)
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for num, name := range fields {
		out[fmt.Sprintf("field_%d", num)] = name
	}
	return out
}

// Scale resolves the profile scale/offset for a field. Satisfies
// fit.ScaleLookup.
func Scale(msgNum uint16, fieldNum uint8) (fit.ScaleOffset, bool) {
	fields, ok := scaleOffsets[msgNum]
	if !ok {
		return fit.ScaleOffset{}, false
	}
	so, ok := fields[fieldNum]
	return so, ok
}

// SemicirclesToDegrees converts a FIT position coordinate to degrees.
func SemicirclesToDegrees(semicircles float64) float64 {
	return semicircles * 180.0 / float64(int64(1)<<31)
}

// Scale/offset declarations from the FIT global profile, applied as
// value/scale - offset. Only fields with a non-trivial transform appear.
var scaleOffsets = map[uint16]map[uint8]fit.ScaleOffset{
	MsgRecord: {
		2:   {Scale: 5, Offset: 500},    // altitude, m
		5:   {Scale: 100},               // distance, m
		6:   {Scale: 1000},              // speed, m/s
		9:   {Scale: 100},               // grade, percent
		11:  {Scale: 1000},              // time_from_course, s
		12:  {Scale: 100},               // cycle_length, m
		17:  {Scale: 16},                // speed_1s, m/s
		32:  {Scale: 1000},              // vertical_speed, m/s
		39:  {Scale: 10},                // vertical_oscillation, mm
		40:  {Scale: 100},               // stance_time_percent
		41:  {Scale: 10},                // stance_time, ms
		48:  {Scale: 128},               // time128, s
		52:  {Scale: 256},               // cadence256, rpm
		53:  {Scale: 128},               // fractional_cadence, rpm
		54:  {Scale: 100},               // total_hemoglobin_conc
		55:  {Scale: 100},               // total_hemoglobin_conc_min
		56:  {Scale: 100},               // total_hemoglobin_conc_max
		57:  {Scale: 10},                // saturated_hemoglobin_percent
		58:  {Scale: 10},                // saturated_hemoglobin_percent_min
		59:  {Scale: 10},                // saturated_hemoglobin_percent_max
		73:  {Scale: 1000},              // enhanced_speed, m/s
		78:  {Scale: 5, Offset: 500},    // enhanced_altitude, m
		81:  {Scale: 2},                 // battery_soc, percent
		84:  {Scale: 100},               // vertical_ratio, percent
		85:  {Scale: 100},               // stance_time_balance, percent
		86:  {Scale: 10},                // step_length, mm
		139: {Scale: 100},               // core_temperature, C
	},
	MsgSession: {
		7:  {Scale: 1000},            // total_elapsed_time, s
		8:  {Scale: 1000},            // total_timer_time, s
		9:  {Scale: 100},             // total_distance, m
		14: {Scale: 1000},            // avg_speed, m/s
		15: {Scale: 1000},            // max_speed, m/s
		35: {Scale: 10},              // training_stress_score
		36: {Scale: 1000},            // intensity_factor
		42: {Scale: 100},             // avg_stroke_distance, m
		44: {Scale: 100},             // pool_length, m
		49: {Scale: 5, Offset: 500},  // avg_altitude, m
		50: {Scale: 5, Offset: 500},  // max_altitude, m
		52: {Scale: 100},             // avg_grade, percent
		59: {Scale: 1000},            // total_moving_time, s
		71: {Scale: 5, Offset: 500},  // min_altitude, m
	},
	MsgLap: {
		7:  {Scale: 1000},           // total_elapsed_time, s
		8:  {Scale: 1000},           // total_timer_time, s
		9:  {Scale: 100},            // total_distance, m
		13: {Scale: 1000},           // avg_speed, m/s
		14: {Scale: 1000},           // max_speed, m/s
		43: {Scale: 5, Offset: 500}, // avg_altitude, m
		44: {Scale: 5, Offset: 500}, // max_altitude, m
		46: {Scale: 100},            // avg_grade, percent
		53: {Scale: 1000},           // total_moving_time, s
		63: {Scale: 5, Offset: 500}, // min_altitude, m
	},
}
