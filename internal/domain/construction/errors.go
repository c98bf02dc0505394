package construction

import "fmt"

// ErrInvalidPlacement reports the first placement rule a position violates
type ErrInvalidPlacement struct {
	Reason string
}

func (e *ErrInvalidPlacement) Error() string {
	return fmt.Sprintf("invalid factory placement: %s", e.Reason)
}

// ErrSiteNotFound indicates no active construction site has the id
type ErrSiteNotFound struct {
	SiteID SiteID
}

func (e *ErrSiteNotFound) Error() string {
	return fmt.Sprintf("construction site not found: %d", e.SiteID)
}

// ErrSiteState indicates an operation the site's lifecycle does not allow
type ErrSiteState struct {
	SiteID    SiteID
	Operation string
	Status    string
}

func (e *ErrSiteState) Error() string {
	return fmt.Sprintf("cannot %s construction site %d in status %s", e.Operation, e.SiteID, e.Status)
}
