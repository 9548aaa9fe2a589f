package video

// FormState is the lifecycle state of a video input form
type FormState string

const (
	// StateIdle means no video is selected
	StateIdle FormState = "idle"

	// StateVideoSelected means a video is held and ready to submit
	StateVideoSelected FormState = "video_selected"

	// StateConverting means a submit is running the conversion pipeline
	StateConverting FormState = "converting"

	// StateConverted means the last submit produced audio
	StateConverted FormState = "converted"
)
