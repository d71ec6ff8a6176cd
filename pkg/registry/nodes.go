package registry

import (
	"github.com/dukex/eca/pkg/actions/enqueue"
	"github.com/dukex/eca/pkg/actions/httprequest"
	logaction "github.com/dukex/eca/pkg/actions/log"
	"github.com/dukex/eca/pkg/actions/raise"
	"github.com/dukex/eca/pkg/actions/tokenset"
	"github.com/dukex/eca/pkg/actions/validate"
	"github.com/dukex/eca/pkg/conditions/compare"
	templatecondition "github.com/dukex/eca/pkg/conditions/template"
	"github.com/dukex/eca/pkg/triggers/custom"
	"github.com/dukex/eca/pkg/triggers/kafka"
	"github.com/dukex/eca/pkg/triggers/payload"
	"github.com/dukex/eca/pkg/triggers/schedule"
	"github.com/dukex/eca/pkg/triggers/task"
	"github.com/dukex/eca/pkg/triggers/webhook"
)

// RegisterDefaults registers all built-in plugins with the registry.
func (r *Registry) RegisterDefaults() {
	// Events
	r.RegisterEvent(custom.NewEvent())
	r.RegisterEvent(kafka.NewEvent())
	r.RegisterEvent(payload.NewEvent())
	r.RegisterEvent(schedule.NewEvent())
	r.RegisterEvent(task.NewEvent())
	r.RegisterEvent(webhook.NewEvent())

	// Conditions
	r.RegisterCondition(compare.NewCondition())
	r.RegisterCondition(templatecondition.NewCondition())

	// Actions
	r.RegisterAction(logaction.NewAction())
	r.RegisterAction(tokenset.NewAction())
	r.RegisterAction(enqueue.NewAction())
	r.RegisterAction(raise.NewAction())
	r.RegisterAction(validate.NewAction())
	r.RegisterAction(httprequest.NewAction())
}
