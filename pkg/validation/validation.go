package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/OldStager01/predictify/pkg/models"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError lists every problem found in one input. It unwraps to the
// sentinel of the input kind, e.g. models.ErrInvalidEventAttributes.
type ValidationError struct {
	Kind   error
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(e.Issues, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

type collector struct {
	kind   error
	issues []string
}

func (c *collector) addf(format string, args ...interface{}) {
	c.issues = append(c.issues, fmt.Sprintf(format, args...))
}

func (c *collector) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Kind: c.kind, Issues: c.issues}
}

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateEventAttributes rejects input the scorer is not defined for.
// Zero capacity is accepted; the scorer treats every ratio as 0.
func ValidateEventAttributes(attrs models.EventAttributes) error {
	c := &collector{kind: models.ErrInvalidEventAttributes}

	if attrs.InterestedCount < 0 {
		c.addf("interestedCount must not be negative, got %d", attrs.InterestedCount)
	}
	if attrs.Capacity < 0 {
		c.addf("capacity must not be negative, got %d", attrs.Capacity)
	}
	if !attrs.LocationType.IsValid() {
		c.addf("locationType must be one of PHYSICAL, VIRTUAL, HYBRID, got %q", attrs.LocationType)
	}
	if attrs.EventDate.IsZero() {
		c.addf("eventDate is required")
	}
	if rate := attrs.Organizer.AverageAttendanceRate; rate != nil && (*rate < 0 || *rate > 1) {
		c.addf("organizer.averageAttendanceRate must be within [0, 1], got %g", *rate)
	}

	return c.err()
}

// ValidateEvent checks an event before it is stored.
func ValidateEvent(event *models.Event) error {
	c := &collector{kind: ErrInvalidInput}

	title := SanitizeString(event.Title)
	switch {
	case title == "":
		c.addf("title cannot be empty")
	case len(title) > 200:
		c.addf("title must not exceed 200 characters")
	}
	if models.Slugify(title) == "" && title != "" {
		c.addf("title must contain at least one letter or digit")
	}
	if !event.Category.IsValid() {
		c.addf("category %q is not supported", event.Category)
	}
	if event.Capacity < 1 {
		c.addf("capacity must be at least 1")
	}
	if event.InterestedCount < 0 {
		c.addf("interestedCount must not be negative")
	}
	if !event.Location.Type.IsValid() {
		c.addf("location.type must be one of PHYSICAL, VIRTUAL, HYBRID")
	}
	if event.Location.Type == models.LocationVirtual && event.Location.City != "" {
		c.addf("virtual events cannot have a city")
	}
	if event.StartDate.IsZero() {
		c.addf("startDate is required")
	}
	if event.IsFree && event.Price > 0 {
		c.addf("free events cannot have a price")
	}
	if event.Price < 0 {
		c.addf("price must not be negative")
	}
	if rate := event.Organizer.AverageAttendanceRate; rate != nil && (*rate < 0 || *rate > 1) {
		c.addf("organizer.averageAttendanceRate must be within [0, 1]")
	}

	return c.err()
}

// ValidateUsername checks if a username is valid
func ValidateUsername(username string) error {
	username = SanitizeString(username)

	if username == "" {
		return errors.New("username cannot be empty")
	}

	if len(username) < 3 {
		return errors.New("username must be at least 3 characters")
	}

	if len(username) > 50 {
		return errors.New("username must not exceed 50 characters")
	}

	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if len(password) > 128 {
		return errors.New("password must not exceed 128 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSpecial {
		return errors.New("password must contain at least one special character")
	}

	return nil
}

// ValidateRole accepts the self-service roles; admins are never self-assigned.
func ValidateRole(role models.UserRole) error {
	if role == "" || role == models.RoleAttendee || role == models.RoleOrganizer {
		return nil
	}
	if role == models.RoleAdmin {
		return errors.New("admin role cannot be requested")
	}
	return fmt.Errorf("unknown role %q", role)
}
