package api

import (
	"fmt"
	"time"

	"github.com/calagora/freebusy-backend/internal/model"
)

// dateTimeFormat is the absolute iCalendar timestamp used in request
// bodies and query parameters.
const dateTimeFormat = "20060102T150405Z"

type userResp struct {
	ID       int64  `json:"id,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

func mapToUserResp(user *model.User) (*userResp, error) {
	return &userResp{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
	}, nil
}

type objectResp struct {
	Href    string `json:"href"`
	UID     string `json:"uid"`
	ETag    string `json:"etag"`
	Summary string `json:"summary,omitempty"`
}

func objectHref(calendarName, objectName string) string {
	return fmt.Sprintf("/calendars/%s/objects/%s", calendarName, objectName)
}

func mapToObjectResp(calendarName string) func(*model.CalendarObject) (*objectResp, error) {
	return func(object *model.CalendarObject) (*objectResp, error) {
		return &objectResp{
			Href:    objectHref(calendarName, object.Name),
			UID:     object.UID,
			ETag:    object.ETag,
			Summary: object.Summary,
		}, nil
	}
}

func parseICalTime(value string) (time.Time, error) {
	return time.Parse(dateTimeFormat, value)
}
