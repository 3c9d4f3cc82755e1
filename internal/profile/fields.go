package profile

// Default field-name mappings from the FIT global profile, keyed by field
// number within each message kind.

var recordFields = map[uint8]string{
	253: "timestamp",
	0:   "position_lat",
	1:   "position_long",
	2:   "altitude",
	3:   "heart_rate",
	4:   "cadence",
	5:   "distance",
	6:   "speed",
	7:   "power",
	8:   "compressed_speed_distance",
	9:   "grade",
	10:  "resistance",
	11:  "time_from_course",
	12:  "cycle_length",
	13:  "temperature",
	17:  "speed_1s",
	18:  "cycles",
	19:  "total_cycles",
	28:  "compressed_accumulated_power",
	29:  "accumulated_power",
	30:  "left_right_balance",
	31:  "gps_accuracy",
	32:  "vertical_speed",
	33:  "calories",
	39:  "vertical_oscillation",
	40:  "stance_time_percent",
	41:  "stance_time",
	42:  "activity_type",
	43:  "left_torque_effectiveness",
	44:  "right_torque_effectiveness",
	45:  "left_pedal_smoothness",
	46:  "right_pedal_smoothness",
	47:  "combined_pedal_smoothness",
	48:  "time128",
	49:  "stroke_type",
	50:  "zone",
	51:  "ball_speed",
	52:  "cadence256",
	53:  "fractional_cadence",
	54:  "total_hemoglobin_conc",
	55:  "total_hemoglobin_conc_min",
	56:  "total_hemoglobin_conc_max",
	57:  "saturated_hemoglobin_percent",
	58:  "saturated_hemoglobin_percent_min",
	59:  "saturated_hemoglobin_percent_max",
	62:  "device_index",
	67:  "left_pco",
	68:  "right_pco",
	69:  "left_power_phase",
	70:  "left_power_phase_peak",
	71:  "right_power_phase",
	72:  "right_power_phase_peak",
	73:  "enhanced_speed",
	78:  "enhanced_altitude",
	81:  "battery_soc",
	82:  "left_right_balance_100",
	83:  "motor_power",
	84:  "vertical_ratio",
	85:  "stance_time_balance",
	86:  "step_length",
	87:  "absolute_pressure",
	88:  "depth",
	89:  "next_stop_depth",
	90:  "next_stop_time",
	91:  "time_to_surface",
	92:  "ndl_time",
	93:  "cns_load",
	94:  "n2_load",
	114: "grit",
	115: "flow",
	117: "ebike_travel_range",
	118: "ebike_battery_level",
	119: "ebike_assist_mode",
	120: "ebike_assist_level_percent",
	139: "core_temperature",
}

var sessionFields = map[uint8]string{
	253: "timestamp",
	254: "message_index",
	0:   "event",
	1:   "event_type",
	2:   "start_time",
	3:   "start_position_lat",
	4:   "start_position_long",
	5:   "sport",
	6:   "sub_sport",
	7:   "total_elapsed_time",
	8:   "total_timer_time",
	9:   "total_distance",
	10:  "total_cycles",
	11:  "total_calories",
	13:  "total_fat_calories",
	14:  "avg_speed",
	15:  "max_speed",
	16:  "avg_heart_rate",
	17:  "max_heart_rate",
	18:  "avg_cadence",
	19:  "max_cadence",
	20:  "avg_power",
	21:  "max_power",
	22:  "total_ascent",
	23:  "total_descent",
	24:  "total_training_effect",
	25:  "first_lap_index",
	26:  "num_laps",
	27:  "event_group",
	28:  "trigger",
	29:  "nec_lat",
	30:  "nec_long",
	31:  "swc_lat",
	32:  "swc_long",
	34:  "normalized_power",
	35:  "training_stress_score",
	36:  "intensity_factor",
	37:  "left_right_balance",
	41:  "avg_stroke_count",
	42:  "avg_stroke_distance",
	43:  "swim_stroke",
	44:  "pool_length",
	45:  "threshold_power",
	46:  "pool_length_unit",
	47:  "num_active_lengths",
	48:  "total_work",
	49:  "avg_altitude",
	50:  "max_altitude",
	51:  "gps_accuracy",
	52:  "avg_grade",
	57:  "avg_temperature",
	58:  "max_temperature",
	59:  "total_moving_time",
	64:  "min_heart_rate",
	65:  "time_in_hr_zone",
	66:  "time_in_speed_zone",
	67:  "time_in_cadence_zone",
	68:  "time_in_power_zone",
	69:  "avg_lap_time",
	70:  "best_lap_index",
	71:  "min_altitude",
	111: "enhanced_avg_speed",
	112: "enhanced_max_speed",
	113: "enhanced_avg_altitude",
	114: "enhanced_min_altitude",
	115: "enhanced_max_altitude",
	122: "avg_vam",
	123: "total_grit",
	124: "total_flow",
	125: "jump_count",
}

var lapFields = map[uint8]string{
	253: "timestamp",
	254: "message_index",
	0:   "event",
	1:   "event_type",
	2:   "start_time",
	3:   "start_position_lat",
	4:   "start_position_long",
	5:   "end_position_lat",
	6:   "end_position_long",
	7:   "total_elapsed_time",
	8:   "total_timer_time",
	9:   "total_distance",
	10:  "total_cycles",
	11:  "total_calories",
	12:  "total_fat_calories",
	13:  "avg_speed",
	14:  "max_speed",
	15:  "avg_heart_rate",
	16:  "max_heart_rate",
	17:  "avg_cadence",
	18:  "max_cadence",
	19:  "avg_power",
	20:  "max_power",
	21:  "total_ascent",
	22:  "total_descent",
	23:  "intensity",
	24:  "lap_trigger",
	25:  "sport",
	26:  "event_group",
	32:  "num_lengths",
	33:  "normalized_power",
	34:  "left_right_balance",
	40:  "sub_sport",
	42:  "total_work",
	43:  "avg_altitude",
	44:  "max_altitude",
	45:  "gps_accuracy",
	46:  "avg_grade",
	51:  "avg_temperature",
	52:  "max_temperature",
	53:  "total_moving_time",
	62:  "repetition_num",
	63:  "min_altitude",
	64:  "min_heart_rate",
	65:  "wkt_step_index",
	99:  "enhanced_avg_speed",
	100: "enhanced_max_speed",
	101: "enhanced_avg_altitude",
	102: "enhanced_min_altitude",
	103: "enhanced_max_altitude",
	110: "avg_vam",
}

var fileIDFields = map[uint8]string{
	0: "type",
	1: "manufacturer",
	2: "product",
	3: "serial_number",
	4: "time_created",
	5: "number",
	8: "product_name",
}

var activityFields = map[uint8]string{
	253: "timestamp",
	0:   "total_timer_time",
	1:   "num_sessions",
	2:   "type",
	3:   "event",
	4:   "event_type",
	5:   "local_timestamp",
	6:   "event_group",
}
