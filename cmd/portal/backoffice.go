package main

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/apiclient"
	"github.com/Nguyentram30/activity-portal/internal/authgate"
	"github.com/Nguyentram30/activity-portal/internal/errs"
	"github.com/Nguyentram30/activity-portal/internal/model"
	"github.com/Nguyentram30/activity-portal/internal/portal"
	"github.com/gofrs/uuid/v5"
)

// backOffice is the endpoint family shared by the admin and manager areas.
type backOffice interface {
	ListActivities(ctx context.Context, q *model.ActivityQuery) ([]model.Activity, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	CreateActivity(ctx context.Context, in model.ActivityInput) (*model.Activity, error)
	UpdateActivity(ctx context.Context, id uuid.UUID, in model.ActivityInput) (*model.Activity, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	ListStudents(ctx context.Context, q *model.StudentQuery) ([]model.Student, error)
	ExportStudents(ctx context.Context, q *model.StudentQuery) (*model.Blob, error)
	ListNotifications(ctx context.Context, q *model.NotificationQuery) ([]model.Notification, error)
	CreateNotification(ctx context.Context, in model.NotificationInput) (*model.Notification, error)
	UpdateNotification(ctx context.Context, id uuid.UUID, in model.NotificationInput) (*model.Notification, error)
	DeleteNotification(ctx context.Context, id uuid.UUID) error
	ScheduleNotification(ctx context.Context, id uuid.UUID, req model.ScheduleRequest) (*model.Notification, error)
	ReportSummary(ctx context.Context, q *model.ReportQuery) (*model.ReportSummary, error)
	ExportReport(ctx context.Context, q *model.ReportQuery) (*model.Blob, error)
	DashboardOverview(ctx context.Context) (*model.DashboardOverview, error)
	Upload(ctx context.Context, req portal.UploadRequest) (*model.UploadResult, error)
}

// area runs a sub-command after the gate admits the stored session.
func (a *app) area(ctx context.Context, name string, roles authgate.RoleSet, cmds map[string]command, args []string) error {
	if len(args) < 1 {
		fmt.Fprintf(a.errOut, "%s: missing sub-command\n", name)
		return errUsage
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "%s: unknown sub-command %q\n", name, args[0])
		return errUsage
	}
	if err := a.gate.Enter(roles); err != nil {
		return err
	}
	return cmd(ctx, args[1:])
}

func (a *app) cmdAdmin(ctx context.Context, args []string) error {
	adm := a.api.Admin
	cmds := a.backOfficeCommands(adm)
	cmds["users"] = listCmd(a, "users", model.ParseUserQuery, adm.ListUsers)
	cmds["user"] = getCmd(a, "user", adm.GetUser)
	cmds["user-create"] = createCmd(a, "user-create", adm.CreateUser)
	cmds["user-update"] = updateCmd(a, "user-update", adm.UpdateUser)
	cmds["user-delete"] = a.deleteCmd("user-delete", adm.DeleteUser)
	cmds["approve"] = a.reviewCmd("approve", adm.ApproveActivity)
	cmds["reject"] = a.reviewCmd("reject", adm.RejectActivity)
	cmds["request-edit"] = a.reviewCmd("request-edit", adm.RequestActivityEdit)
	cmds["documents"] = listCmd(a, "documents", model.ParseDocumentQuery, adm.ListDocuments)
	cmds["document-upload"] = uploadCmd(a, "document-upload", adm.UploadDocument)
	cmds["document-delete"] = a.deleteCmd("document-delete", adm.DeleteDocument)
	cmds["logs"] = listCmd(a, "logs", model.ParseLogQuery, adm.ListLogs)
	cmds["features"] = plainCmd(a, "features", adm.ListFeatures)
	cmds["widgets"] = plainCmd(a, "widgets", adm.ListWidgets)
	cmds["feature-set"] = func(ctx context.Context, args []string) error {
		fs := a.flags("feature-set")
		key := fs.String("key", "", "feature key")
		enabled := optBool{}
		fs.Var(&enabled, "enabled", "true or false")
		if err := parse(fs, args); err != nil {
			return err
		}
		f, err := adm.UpdateFeature(ctx, *key, model.FeatureUpdate{Enabled: enabled.ptr()})
		if err != nil {
			return err
		}
		return a.printJSON(f)
	}
	cmds["widget-set"] = func(ctx context.Context, args []string) error {
		fs := a.flags("widget-set")
		key := fs.String("key", "", "widget key")
		enabled := optBool{}
		fs.Var(&enabled, "enabled", "true or false")
		title := fs.String("title", "", "new title")
		position := fs.Int("position", -1, "new position")
		if err := parse(fs, args); err != nil {
			return err
		}
		upd := model.WidgetUpdate{Enabled: enabled.ptr(), Title: optional(*title)}
		if *position >= 0 {
			upd.Position = position
		}
		w, err := adm.UpdateWidget(ctx, *key, upd)
		if err != nil {
			return err
		}
		return a.printJSON(w)
	}
	return a.area(ctx, "admin", authgate.AdminOnly, cmds, args)
}

func (a *app) cmdManager(ctx context.Context, args []string) error {
	mgr := a.api.Manager
	cmds := a.backOfficeCommands(mgr)
	cmds["registration-status"] = func(ctx context.Context, args []string) error {
		fs := a.flags("registration-status")
		rawID := fs.String("id", "", "registration id")
		status := fs.String("status", "", "new status")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("id", *rawID)
		if err != nil {
			return err
		}
		reg, err := mgr.UpdateRegistrationStatus(ctx, id, model.RegistrationStatusUpdate{Status: model.RegistrationStatus(*status)})
		if err != nil {
			return err
		}
		return a.printJSON(reg)
	}
	cmds["feedbacks"] = a.byActivityCmd("feedbacks", func(ctx context.Context, id uuid.UUID) (any, error) {
		return mgr.ListFeedbacks(ctx, id)
	})
	cmds["qr-code"] = a.byActivityCmd("qr-code", func(ctx context.Context, id uuid.UUID) (any, error) {
		return mgr.IssueQRCode(ctx, id)
	})
	return a.area(ctx, "manager", authgate.ManagerOrAdmin, cmds, args)
}

func (a *app) backOfficeCommands(b backOffice) map[string]command {
	return map[string]command{
		"activities":          listCmd(a, "activities", model.ParseActivityQuery, b.ListActivities),
		"activity":            getCmd(a, "activity", b.GetActivity),
		"activity-create":     createCmd(a, "activity-create", b.CreateActivity),
		"activity-update":     updateCmd(a, "activity-update", b.UpdateActivity),
		"activity-delete":     a.deleteCmd("activity-delete", b.DeleteActivity),
		"students":            listCmd(a, "students", model.ParseStudentQuery, b.ListStudents),
		"students-export":     exportCmd(a, "students-export", model.ParseStudentQuery, b.ExportStudents),
		"notifications":       listCmd(a, "notifications", model.ParseNotificationQuery, b.ListNotifications),
		"notification-create": createCmd(a, "notification-create", b.CreateNotification),
		"notification-update": updateCmd(a, "notification-update", b.UpdateNotification),
		"notification-delete": a.deleteCmd("notification-delete", b.DeleteNotification),
		"report":              listCmd(a, "report", model.ParseReportQuery, b.ReportSummary),
		"report-export":       exportCmd(a, "report-export", model.ParseReportQuery, b.ExportReport),
		"dashboard":           plainCmd(a, "dashboard", b.DashboardOverview),
		"upload":              uploadCmd(a, "upload", b.Upload),
		"notification-schedule": func(ctx context.Context, args []string) error {
			fs := a.flags("notification-schedule")
			rawID := fs.String("id", "", "notification id")
			at := fs.String("at", "", "delivery time, RFC 3339")
			if err := parse(fs, args); err != nil {
				return err
			}
			id, err := parseID("id", *rawID)
			if err != nil {
				return err
			}
			when, err := time.Parse(time.RFC3339, *at)
			if err != nil {
				return errs.Invalid("at", "expected RFC 3339 timestamp")
			}
			n, err := b.ScheduleNotification(ctx, id, model.ScheduleRequest{ScheduledAt: when})
			if err != nil {
				return err
			}
			return a.printJSON(n)
		},
	}
}

// The builders below are functions rather than methods because they are generic.

func plainCmd[T any](a *app, name string, call func(context.Context) (T, error)) command {
	return func(ctx context.Context, args []string) error {
		if err := parse(a.flags(name), args); err != nil {
			return err
		}
		out, err := call(ctx)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func listCmd[Q, T any](a *app, name string, parseFn func(url.Values) (Q, error), call func(context.Context, *Q) (T, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		raw := fs.String("q", "", "filters as a query string")
		if err := parse(fs, args); err != nil {
			return err
		}
		q, err := parseQuery(*raw, parseFn)
		if err != nil {
			return err
		}
		out, err := call(ctx, q)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func getCmd[T any](a *app, name string, call func(context.Context, uuid.UUID) (*T, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		rawID := fs.String("id", "", "id")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("id", *rawID)
		if err != nil {
			return err
		}
		out, err := call(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func createCmd[In, Out any](a *app, name string, call func(context.Context, In) (*Out, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		src := fs.String("json", "", "request body file, - for stdin")
		if err := parse(fs, args); err != nil {
			return err
		}
		var in In
		if err := a.readJSON(*src, &in); err != nil {
			return err
		}
		out, err := call(ctx, in)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func updateCmd[In, Out any](a *app, name string, call func(context.Context, uuid.UUID, In) (*Out, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		rawID := fs.String("id", "", "id")
		src := fs.String("json", "", "request body file, - for stdin")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("id", *rawID)
		if err != nil {
			return err
		}
		var in In
		if err := a.readJSON(*src, &in); err != nil {
			return err
		}
		out, err := call(ctx, id, in)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func exportCmd[Q any](a *app, name string, parseFn func(url.Values) (Q, error), call func(context.Context, *Q) (*model.Blob, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		raw := fs.String("q", "", "filters as a query string")
		dest := fs.String("o", "", "output file, - for stdout (default: server file name)")
		if err := parse(fs, args); err != nil {
			return err
		}
		q, err := parseQuery(*raw, parseFn)
		if err != nil {
			return err
		}
		b, err := call(ctx, q)
		if err != nil {
			return err
		}
		return a.writeBlob(b, *dest)
	}
}

func uploadCmd[T any](a *app, name string, call func(context.Context, portal.UploadRequest) (*T, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		path := fs.String("file", "", "file to upload")
		title := fs.String("title", "", "title")
		if err := parse(fs, args); err != nil {
			return err
		}
		if *path == "" {
			return errs.Invalid("file", "required")
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		out, err := call(ctx, portal.UploadRequest{
			File: apiclient.FilePart{
				Name:        filepath.Base(*path),
				ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(*path))),
				Content:     f,
			},
			Title: *title,
		})
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

func (a *app) deleteCmd(name string, call func(context.Context, uuid.UUID) error) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		rawID := fs.String("id", "", "id")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("id", *rawID)
		if err != nil {
			return err
		}
		if err := call(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(a.errOut, "deleted", id)
		return nil
	}
}

func (a *app) reviewCmd(name string, call func(context.Context, uuid.UUID, model.ReviewRequest) (*model.Activity, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		rawID := fs.String("id", "", "activity id")
		note := fs.String("note", "", "review note")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("id", *rawID)
		if err != nil {
			return err
		}
		act, err := call(ctx, id, model.ReviewRequest{Note: *note})
		if err != nil {
			return err
		}
		return a.printJSON(act)
	}
}

func (a *app) byActivityCmd(name string, call func(context.Context, uuid.UUID) (any, error)) command {
	return func(ctx context.Context, args []string) error {
		fs := a.flags(name)
		rawID := fs.String("activity", "", "activity id")
		if err := parse(fs, args); err != nil {
			return err
		}
		id, err := parseID("activity", *rawID)
		if err != nil {
			return err
		}
		out, err := call(ctx, id)
		if err != nil {
			return err
		}
		return a.printJSON(out)
	}
}

// optBool is a bool flag that remembers whether it was given.
type optBool struct {
	set bool
	val bool
}

func (b *optBool) String() string {
	if b == nil || !b.set {
		return ""
	}
	return strconv.FormatBool(b.val)
}

func (b *optBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.set, b.val = true, v
	return nil
}

func (b *optBool) IsBoolFlag() bool { return true }

func (b *optBool) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.val
	return &v
}
