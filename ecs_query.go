package particles

import (
	"reflect"
)

// Queries visit archetypes in creation order and rows in insertion order,
// except that removals swap the last row into the freed slot.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]       { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B] { return Query2[A, B]{ecs: cmd.app.ecs} }

// Map calls m for every entity holding an A, until m returns false.
func (q Query1[A]) Map(m func(EntityId, *A) bool) {
	id1 := identifyComponents1[A](q.ecs)

	for _, arch := range q.ecs.archetypes {
		arg1CompData, ok := arch.componentData[id1]
		if !ok {
			continue
		}
		comps1 := arg1CompData.([]A)

		for r, entityId := range arch.entities {
			if !m(entityId, &comps1[r]) {
				return
			}
		}
	}
}

// Map calls m for every entity holding both an A and a B, until m returns
// false. Passing a zero value of A or B in optionals also visits entities
// lacking that component; m then receives nil for it.
func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponents2[A, B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		var comps1 []A
		no_a := false
		if arg1CompData, ok := arch.componentData[id1]; ok {
			comps1 = arg1CompData.([]A)
		} else if _, ok := opt[id1]; ok {
			no_a = true
		} else {
			continue
		}

		var comps2 []B
		no_b := false
		if arg2CompData, ok := arch.componentData[id2]; ok {
			comps2 = arg2CompData.([]B)
		} else if _, ok := opt[id2]; ok {
			no_b = true
		} else {
			continue
		}

		for r, entityId := range arch.entities {
			var a *A
			if !no_a {
				a = &comps1[r]
			}

			var b *B
			if !no_b {
				b = &comps2[r]
			}

			if !m(entityId, a, b) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, components ...any) map[componentId]struct{} {
	res := make(map[componentId]struct{})
	for _, c := range components {
		res[ecs.getComponentId(reflect.TypeOf(c))] = struct{}{}
	}

	return res
}

func identifyComponents1[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeFor[A]())
}

func identifyComponents2[A, B any](ecs *Ecs) (componentId, componentId) {
	return ecs.getComponentId(reflect.TypeFor[A]()), ecs.getComponentId(reflect.TypeFor[B]())
}
