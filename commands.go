package particles

import "github.com/gekko3d/particles/logging"

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// AddEntity queues an entity holding components. It exists after the current
// stage ends, or once Build returns when called from Install.
func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

// RemoveEntity queues the removal of entityId. Unknown ids are ignored.
func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

// UseSystem schedules fn in the Update stage.
func (cmd *Commands) UseSystem(fn any) *Commands {
	cmd.app.UseSystem(System(fn))
	return cmd
}

// Stop ends App.Run after the current frame.
func (cmd *Commands) Stop() {
	cmd.app.stop()
}

func (cmd *Commands) Frame() int {
	return cmd.app.frame
}

func (cmd *Commands) Logger() logging.Logger {
	return cmd.app.Logger()
}
