package model

// Job statuses
type JobStatus string

const (
	JobStatusQueued        JobStatus = "queued"
	JobStatusGenerating    JobStatus = "generating"
	JobStatusEditing       JobStatus = "editing"
	JobStatusReadyToRender JobStatus = "ready_to_render"
	JobStatusCompleted     JobStatus = "completed"
	JobStatusFailed        JobStatus = "failed"
)

var ValidJobStatuses = []JobStatus{
	JobStatusQueued, JobStatusGenerating, JobStatusEditing,
	JobStatusReadyToRender, JobStatusCompleted, JobStatusFailed,
}

// allowedTransitions lists every status a job may move to from a given status.
// Generation can be re-run from any settled state and composition can be
// re-prepared once segments exist.
var allowedTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:        {JobStatusGenerating, JobStatusFailed},
	JobStatusGenerating:    {JobStatusGenerating, JobStatusEditing, JobStatusFailed},
	JobStatusEditing:       {JobStatusGenerating, JobStatusReadyToRender, JobStatusFailed},
	JobStatusReadyToRender: {JobStatusGenerating, JobStatusReadyToRender, JobStatusCompleted, JobStatusFailed},
	JobStatusCompleted:     {JobStatusGenerating, JobStatusReadyToRender, JobStatusFailed},
	JobStatusFailed:        {JobStatusGenerating, JobStatusReadyToRender, JobStatusFailed},
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether a job in status s may move to next.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Scene roles, in playback order
type SceneRole string

const (
	SceneRoleIntro SceneRole = "intro"
	SceneRoleMain  SceneRole = "main"
	SceneRoleOutro SceneRole = "outro"
)

var SceneRoles = []SceneRole{SceneRoleIntro, SceneRoleMain, SceneRoleOutro}

// SegmentCount is the number of scenes a finished generation produces.
const SegmentCount = 3

// Index returns the playback position of the role, or -1 if unknown.
func (r SceneRole) Index() int {
	for i, role := range SceneRoles {
		if role == r {
			return i
		}
	}
	return -1
}

// Logo positions
type LogoPosition string

const (
	LogoPositionTopLeft     LogoPosition = "top-left"
	LogoPositionTopRight    LogoPosition = "top-right"
	LogoPositionBottomLeft  LogoPosition = "bottom-left"
	LogoPositionBottomRight LogoPosition = "bottom-right"
)

var ValidLogoPositions = []LogoPosition{
	LogoPositionTopLeft, LogoPositionTopRight, LogoPositionBottomLeft, LogoPositionBottomRight,
}

func (p LogoPosition) Valid() bool {
	for _, v := range ValidLogoPositions {
		if v == p {
			return true
		}
	}
	return false
}

// Upload kinds
type ImageKind string

const (
	ImageKindProduct ImageKind = "product"
	ImageKindLogo    ImageKind = "logo"
)

func (k ImageKind) Valid() bool {
	return k == ImageKindProduct || k == ImageKindLogo
}
