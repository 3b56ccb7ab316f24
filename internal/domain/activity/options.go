package activity

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	Source       string
	ActivityType *ActivityType
	Outcome      *Outcome
	Limit        int
	Offset       int
}
