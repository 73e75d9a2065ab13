package particles

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"
)

type EntityId uint64
type archetypeId uint64
type archetypeKey []componentId
type componentId uint32
type row int

// Ecs groups entities by their exact set of component types. Each archetype
// stores one typed slice per component type; an entity is one row across them.
type Ecs struct {
	archetypes  []*archetype
	byId        map[archetypeId]*archetype
	entityIndex map[EntityId]*archetype

	idGeneratorLock sync.Mutex
	entityIdCounter EntityId

	componentTypeIdMap map[reflect.Type]componentId
	componentIdTypeMap map[componentId]reflect.Type
}

func MakeEcs() *Ecs {
	return &Ecs{
		byId:               make(map[archetypeId]*archetype),
		entityIndex:        make(map[EntityId]*archetype),
		componentTypeIdMap: make(map[reflect.Type]componentId),
		componentIdTypeMap: make(map[componentId]reflect.Type),
	}
}

type archetype struct {
	id            archetypeId
	key           archetypeKey
	entities      []EntityId // by row
	rows          map[EntityId]row
	componentData map[componentId]any // typed slices via reflection
}

func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	arch := ecs.getOrMakeArchetype(ecs.getArchetypeKey(components...))

	r := row(len(arch.entities))
	for _, componentId := range arch.key {
		arch.componentData[componentId] = reflectSliceAppend(
			arch.componentData[componentId],
			reflect.Zero(ecs.componentIdTypeMap[componentId]),
		)
	}
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}

	arch.entities = append(arch.entities, entityId)
	arch.rows[entityId] = r
	ecs.entityIndex[entityId] = arch

	return entityId
}

// removeEntity moves the archetype's last row into the freed one, so rows stay
// dense. It reports whether the entity existed.
func (ecs *Ecs) removeEntity(entityId EntityId) bool {
	arch, ok := ecs.entityIndex[entityId]
	if !ok {
		return false
	}

	r := arch.rows[entityId]
	last := row(len(arch.entities) - 1)
	for _, componentId := range arch.key {
		data := arch.componentData[componentId]
		if r != last {
			reflectSliceSet(data, int(r), reflectSliceGet(data, int(last)))
		}
		reflectSliceSet(data, int(last), reflect.Zero(ecs.componentIdTypeMap[componentId]))
		arch.componentData[componentId] = reflectSliceTruncate(data, int(last))
	}
	if r != last {
		moved := arch.entities[last]
		arch.entities[r] = moved
		arch.rows[moved] = r
	}
	arch.entities = arch.entities[:last]

	delete(arch.rows, entityId)
	delete(ecs.entityIndex, entityId)
	return true
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entityIndex[entityId]
	return ok
}

func (ecs *Ecs) entityCount() int {
	return len(ecs.entityIndex)
}

func (ecs *Ecs) writeComponent(dstArch *archetype, dstRow row, component any) {
	componentType := reflect.TypeOf(component)
	reflectValue := reflect.ValueOf(component)
	if componentType.Kind() == reflect.Pointer {
		componentType = componentType.Elem()
		reflectValue = reflectValue.Elem()
	}

	componentId := ecs.getComponentId(componentType)
	reflectSliceSet(dstArch.componentData[componentId], int(dstRow), reflectValue)
}

func (ecs *Ecs) getOrMakeArchetype(key archetypeKey) *archetype {
	id := getArchetypeId(key)

	if arch, ok := ecs.byId[id]; ok {
		return arch
	}

	arch := &archetype{
		id:            id,
		key:           key,
		rows:          make(map[EntityId]row),
		componentData: make(map[componentId]any),
	}
	for _, componentId := range arch.key {
		arch.componentData[componentId] = reflectSliceMake(
			ecs.componentIdTypeMap[componentId],
		)
	}

	ecs.byId[id] = arch
	ecs.archetypes = append(ecs.archetypes, arch)
	return arch
}

// getArchetypeKey returns the sorted, deduplicated component ids of components.
// Components must be structs or pointers to structs.
func (ecs *Ecs) getArchetypeKey(components ...any) archetypeKey {
	var res archetypeKey

	for _, component := range components {
		compType := reflect.TypeOf(component)
		if compType != nil && compType.Kind() == reflect.Pointer {
			compType = compType.Elem()
		}
		if compType == nil || compType.Kind() != reflect.Struct {
			panic(fmt.Sprintf("component should be a struct, got %v", compType))
		}

		res = append(res, ecs.getComponentId(compType))
	}

	slices.Sort(res)
	return slices.Compact(res)
}

func getArchetypeId(key archetypeKey) archetypeId {
	hash := fnv.New64a()
	b := make([]byte, 4)
	for _, componentId := range key {
		binary.LittleEndian.PutUint32(b, uint32(componentId))
		hash.Write(b)
	}
	return archetypeId(hash.Sum64())
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idGeneratorLock.Lock()
	defer ecs.idGeneratorLock.Unlock()

	id := ecs.entityIdCounter
	ecs.entityIdCounter += 1

	return id
}

func (ecs *Ecs) getComponentId(componentType reflect.Type) componentId {
	if id, ok := ecs.componentTypeIdMap[componentType]; ok {
		return id
	}

	id := componentId(len(ecs.componentTypeIdMap))
	ecs.componentTypeIdMap[componentType] = id
	ecs.componentIdTypeMap[id] = componentType
	return id
}
