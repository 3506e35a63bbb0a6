package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldActorID       = "actor_id"
	FieldGlobalID      = "global_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldActorType = "actor_type"

	// Launch-monitor / shot fields
	FieldShotNumber = "shot_number"
	FieldClub       = "club"
	FieldMode       = "mode"
	FieldFrameKind  = "frame_kind"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldVerdict  = "verdict"

	// Path / URL fields
	FieldPath       = "path"
	FieldConfigPath = "config_path"

	// Network fields
	FieldBind = "bind"
)
