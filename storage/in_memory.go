package storage

import (
	"sync"
)

func NewInMemoryRecordStorage[T any]() IRecordStorage[T] {
	return &inMemoryRecordStorage[T]{}
}

type inMemoryRecordStorage[T any] struct {
	mutex  sync.RWMutex
	record T
}

func (mrs *inMemoryRecordStorage[T]) Load() (record T, err error) {
	mrs.mutex.RLock()
	defer mrs.mutex.RUnlock()
	record = mrs.record
	return
}
func (mrs *inMemoryRecordStorage[T]) Store(record T) (err error) {
	mrs.mutex.Lock()
	defer mrs.mutex.Unlock()
	mrs.record = record
	return
}
func (mrs *inMemoryRecordStorage[T]) Delete() (err error) {
	mrs.mutex.Lock()
	defer mrs.mutex.Unlock()
	mrs.record = *new(T)
	return
}

func NewInMemoryEntityStorage[T any, K Key](entityKey func(T) K) IEntityStorage[T, K] {
	return &inMemoryEntityStorage[T, K]{
		onEntityKey: entityKey,
	}
}

type inMemoryEntityStorage[T any, K Key] struct {
	mutex       sync.RWMutex
	storage     map[K]T
	onEntityKey func(T) K
}

func (mes *inMemoryEntityStorage[T, K]) getStorage() map[K]T {
	if mes.storage == nil {
		mes.storage = make(map[K]T)
	}
	return mes.storage
}

func (mes *inMemoryEntityStorage[T, K]) GetEntity(entityId K) (entity T, err error) {
	mes.mutex.RLock()
	defer mes.mutex.RUnlock()
	if mes.storage == nil {
		return
	}
	entity = mes.storage[entityId]
	return
}
func (mes *inMemoryEntityStorage[T, K]) GetAll(cb func(T) bool) (err error) {
	mes.mutex.RLock()
	defer mes.mutex.RUnlock()
	for _, v := range mes.storage {
		if !cb(v) {
			break
		}
	}
	return
}
func (mes *inMemoryEntityStorage[T, K]) PutEntities(entities []T) (err error) {
	mes.mutex.Lock()
	defer mes.mutex.Unlock()
	var storage = mes.getStorage()
	for _, e := range entities {
		storage[mes.onEntityKey(e)] = e
	}
	return
}
func (mes *inMemoryEntityStorage[T, K]) DeleteUids(keys []K) (err error) {
	mes.mutex.Lock()
	defer mes.mutex.Unlock()
	for _, key := range keys {
		delete(mes.storage, key)
	}
	return
}
func (mes *inMemoryEntityStorage[T, K]) Clear() error {
	mes.mutex.Lock()
	defer mes.mutex.Unlock()
	mes.storage = nil
	return nil
}

func NewInMemoryLinkStorage[T any, KS Key, KO Key](subjectKey func(T) KS, objectKey func(T) KO) ILinkStorage[T, KS, KO] {
	return &inMemoryLinkStorage[T, KS, KO]{
		onSubjectKey: subjectKey,
		onObjectKey:  objectKey,
	}
}

type inMemoryLinkStorage[T any, KS Key, KO Key] struct {
	mutex        sync.RWMutex
	storage      map[KS]map[KO]T
	onSubjectKey func(T) KS
	onObjectKey  func(T) KO
}

func (mls *inMemoryLinkStorage[T, KS, KO]) getStorage() map[KS]map[KO]T {
	if mls.storage == nil {
		mls.storage = make(map[KS]map[KO]T)
	}
	return mls.storage
}
func (mls *inMemoryLinkStorage[T, KS, KO]) PutLinks(links []T) (err error) {
	mls.mutex.Lock()
	defer mls.mutex.Unlock()
	var storage = mls.getStorage()
	var ok bool
	var objects map[KO]T
	for _, l := range links {
		var subjectKey = mls.onSubjectKey(l)
		if objects, ok = storage[subjectKey]; !ok {
			objects = make(map[KO]T)
			storage[subjectKey] = objects
		}
		objects[mls.onObjectKey(l)] = l
	}
	return
}
func (mls *inMemoryLinkStorage[T, KS, KO]) DeleteLinks(links []IUidLink[KS, KO]) (err error) {
	mls.mutex.Lock()
	defer mls.mutex.Unlock()
	if mls.storage == nil {
		return
	}
	var ok bool
	var objects map[KO]T
	for _, l := range links {
		if objects, ok = mls.storage[l.SubjectUid()]; ok {
			delete(objects, l.ObjectUid())
		}
	}
	return
}
func (mls *inMemoryLinkStorage[T, KS, KO]) DeleteLinksForSubjects(subjectKeys []KS) (err error) {
	mls.mutex.Lock()
	defer mls.mutex.Unlock()
	for _, subjectKey := range subjectKeys {
		delete(mls.storage, subjectKey)
	}
	return
}
func (mls *inMemoryLinkStorage[T, KS, KO]) GetLinksForSubjects(subjectKeys []KS, cb func(T) bool) (err error) {
	mls.mutex.RLock()
	defer mls.mutex.RUnlock()
	var ok bool
	var objects map[KO]T
	for _, subjectKey := range subjectKeys {
		if objects, ok = mls.storage[subjectKey]; ok {
			for _, v := range objects {
				if !cb(v) {
					return
				}
			}
		}
	}
	return
}
func (mls *inMemoryLinkStorage[T, KS, KO]) GetAll(cb func(T) bool) (err error) {
	mls.mutex.RLock()
	defer mls.mutex.RUnlock()
	for _, objects := range mls.storage {
		for _, link := range objects {
			if !cb(link) {
				return
			}
		}
	}
	return
}

func (mls *inMemoryLinkStorage[T, KS, KO]) GetLink(subjectKey KS, objectKey KO) (link T, err error) {
	mls.mutex.RLock()
	defer mls.mutex.RUnlock()
	var ok bool
	var objects map[KO]T
	if objects, ok = mls.storage[subjectKey]; ok {
		link = objects[objectKey]
	}
	return
}
func (mls *inMemoryLinkStorage[T, KS, KO]) Clear() error {
	mls.mutex.Lock()
	defer mls.mutex.Unlock()
	mls.storage = nil
	return nil
}
