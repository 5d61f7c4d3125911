package calendar

import (
	"time"

	"github.com/calagora/freebusy-backend/internal/model"
)

type calendarDTO struct {
	ID              int64
	OwnerID         int64
	Name            string
	FreeBusyVisible bool
	CTag            string `db:"ctag"`
}

func mapToCalendar(dto *calendarDTO) *model.Calendar {
	return &model.Calendar{
		ID:   dto.ID,
		CTag: dto.CTag,
		CalendarCreate: model.CalendarCreate{
			OwnerID:         dto.OwnerID,
			Name:            dto.Name,
			FreeBusyVisible: dto.FreeBusyVisible,
		},
	}
}

type objectDTO struct {
	ResourceID         int64 `db:"resource_id"`
	CalendarResourceID int64 `db:"calendar_resource_id"`
	Name               string
	ETag               string `db:"etag"`
	ICalendarUID       string `db:"icalendar_uid"`
	ICalendarType      string `db:"icalendar_type"`
	Summary            string
	Organizer          string
	Attendees          []string
	Status             int
	RecurrenceRule     string
	Floating           bool
	StartDate          time.Time
	EndDate            time.Time
	ExpandedUntil      time.Time
	Data               string
}

func mapToObject(dto *objectDTO) *model.CalendarObject {
	return &model.CalendarObject{
		ID:            dto.ResourceID,
		ETag:          dto.ETag,
		ExpandedUntil: dto.ExpandedUntil,
		ObjectCreate: model.ObjectCreate{
			CalendarID: dto.CalendarResourceID,
			Name:       dto.Name,
			UID:        dto.ICalendarUID,
			Component:  dto.ICalendarType,
			Summary:    dto.Summary,
			Organizer:  dto.Organizer,
			Attendees:  dto.Attendees,
			Status:     model.BusyStatus(dto.Status),
			RRule:      dto.RecurrenceRule,
			Floating:   dto.Floating,
			From:       dto.StartDate,
			To:         dto.EndDate,
			Data:       dto.Data,
		},
	}
}

type instanceDTO struct {
	InstanceID  int64 `db:"instance_id"`
	Floating    bool
	StartDate   time.Time
	EndDate     time.Time
	FBType      int `db:"fbtype"`
	Transparent *bool
}

// mapToInstance applies the per-user overlay: an instance marked
// transparent for this user takes no time.
func mapToInstance(dto *instanceDTO) model.Instance {
	status := model.BusyStatus(dto.FBType)
	if dto.Transparent != nil && *dto.Transparent {
		status = model.StatusFree
	}

	return model.Instance{
		ID:     dto.InstanceID,
		Status: status,
		Period: model.Period{
			Start:    dto.StartDate,
			End:      dto.EndDate,
			Floating: dto.Floating,
		},
	}
}
