package main

import (
	"context"

	"github.com/Nguyentram30/activity-portal/internal/model"
)

func (a *app) cmdActivities(ctx context.Context, args []string) error {
	fs := a.flags("activities")
	raw := fs.String("q", "", "filters as a query string")
	if err := parse(fs, args); err != nil {
		return err
	}
	q, err := parseQuery(*raw, model.ParseActivityQuery)
	if err != nil {
		return err
	}
	out, err := a.api.Activity.List(ctx, q)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *app) cmdActivity(ctx context.Context, args []string) error {
	fs := a.flags("activity")
	rawID := fs.String("id", "", "activity id")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("id", *rawID)
	if err != nil {
		return err
	}
	act, err := a.api.Activity.Get(ctx, id)
	if err != nil {
		return err
	}
	return a.printJSON(act)
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := a.flags("register")
	rawID := fs.String("activity", "", "activity id")
	note := fs.String("note", "", "note for the organiser")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("activity", *rawID)
	if err != nil {
		return err
	}
	reg, err := a.api.Activity.Register(ctx, model.RegistrationRequest{ActivityID: id, Note: optional(*note)})
	if err != nil {
		return err
	}
	return a.printJSON(reg)
}

func (a *app) cmdMyRegistrations(ctx context.Context, args []string) error {
	if err := parse(a.flags("my-registrations"), args); err != nil {
		return err
	}
	out, err := a.api.Activity.MyRegistrations(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	fs := a.flags("cancel")
	rawID := fs.String("id", "", "registration id")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("id", *rawID)
	if err != nil {
		return err
	}
	reg, err := a.api.Activity.CancelRegistration(ctx, id)
	if err != nil {
		return err
	}
	return a.printJSON(reg)
}

func (a *app) cmdCheckIn(ctx context.Context, args []string) error {
	fs := a.flags("checkin")
	code := fs.String("code", "", "code from the activity QR")
	if err := parse(fs, args); err != nil {
		return err
	}
	reg, err := a.api.Activity.CheckIn(ctx, model.CheckInRequest{Code: *code})
	if err != nil {
		return err
	}
	return a.printJSON(reg)
}

func (a *app) cmdFeedback(ctx context.Context, args []string) error {
	fs := a.flags("feedback")
	rawID := fs.String("activity", "", "activity id")
	rating := fs.Int("rating", 0, "rating from 1 to 5")
	comment := fs.String("comment", "", "comment")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("activity", *rawID)
	if err != nil {
		return err
	}
	fb, err := a.api.Activity.SubmitFeedback(ctx, id, model.FeedbackInput{Rating: *rating, Comment: *comment})
	if err != nil {
		return err
	}
	return a.printJSON(fb)
}

func (a *app) cmdInbox(ctx context.Context, args []string) error {
	fs := a.flags("inbox")
	raw := fs.String("q", "", "paging as a query string")
	if err := parse(fs, args); err != nil {
		return err
	}
	q, err := parseQuery(*raw, model.ParseNotificationQuery)
	if err != nil {
		return err
	}
	out, err := a.api.Activity.Notifications(ctx, q)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}
