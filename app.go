package particles

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
)

// ErrUnresolvedDependency is returned when a system asks for an argument no
// resource provides.
var ErrUnresolvedDependency = errors.New("unable to resolve system dependency")

type systemFn any

type App struct {
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any

	ecs              *Ecs
	pendingAdditions []pendingAdd
	pendingRemovals  []EntityId

	frame    int
	stopping bool
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run executes frames until a system fails, a system calls Commands.Stop, or
// frames frames have run. frames <= 0 runs until stopped.
func (app *App) Run(frames int) error {
	app.Logger().Infof("running %d stages, frame limit %d", len(app.stages), frames)

	for frames <= 0 || app.frame < frames {
		if err := app.Step(); err != nil {
			app.Logger().Errorf("%v", err)
			return err
		}
		if app.stopping {
			app.Logger().Infof("stopped after %d frames", app.frame)
			break
		}
	}
	return nil
}

// Step runs every stage once.
func (app *App) Step() error {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			if err := app.callSystem(system); err != nil {
				return fmt.Errorf("frame %d, stage %s: %w", app.frame, stage.Name, err)
			}
		}
		app.FlushCommands()
	}
	app.frame++
	return nil
}

// FlushCommands applies the entity additions and removals queued through
// Commands. Additions go first, so an entity added and removed within one
// stage never appears.
func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 {
		return
	}

	for _, add := range app.pendingAdditions {
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	for _, eid := range app.pendingRemovals {
		app.ecs.removeEntity(eid)
	}
	app.pendingRemovals = app.pendingRemovals[:0]
}

// Entities is the number of live entities.
func (app *App) Entities() int { return app.ecs.entityCount() }

func (app *App) HasEntity(entityId EntityId) bool { return app.ecs.hasEntity(entityId) }

// Frame is the number of completed frames.
func (app *App) Frame() int { return app.frame }

func (app *App) stop() { app.stopping = true }

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType == nil || resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %v must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T, if one was added.
func Resource[T any](app *App) (*T, bool) {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

var (
	typeOfCommands = reflect.TypeOf(Commands{})
	typeOfError    = reflect.TypeOf((*error)(nil)).Elem()
)

// callSystem resolves the system's pointer arguments from the resources and
// calls it. A system whose last result is an error may fail the frame.
func (app *App) callSystem(system systemFn) error {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			return fmt.Errorf("%w: system %s (%s) needs %s",
				ErrUnresolvedDependency,
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				systemType,
				argType,
			)
		}
	}

	results := systemValue.Call(args)
	if n := len(results); n > 0 && systemType.Out(n-1) == typeOfError {
		if err, _ := results[n-1].Interface().(error); err != nil {
			return err
		}
	}
	return nil
}

// checkSystem panics when fn cannot be scheduled as a system.
func checkSystem(fn systemFn) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("system must be a func, got %v", t))
	}
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i).Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system %v: argument %d must be a pointer", t, i))
		}
	}
	if n := t.NumOut(); n > 1 || (n == 1 && t.Out(0) != typeOfError) {
		panic(fmt.Sprintf("system %v may only return an error", t))
	}
}
