package storage

// Key is the set of uid types rows are addressed by.
type Key interface {
	string | int64
}

// IRecordStorage holds at most one row per user, such as settings or an
// entitlement snapshot.
type IRecordStorage[T any] interface {
	Load() (T, error)
	Store(T) error
	Delete() error
}

// IEntityStorage addresses rows by a single uid.
type IEntityStorage[T any, K Key] interface {
	GetEntity(K) (T, error)
	GetAll(func(T) bool) error
	PutEntities([]T) error
	DeleteUids([]K) error
	Clear() error
}

type IUid[K Key] interface {
	Uid() K
}

// IUidLink identifies a row owned by a subject row: an item under its share,
// a key generation under its share.
type IUidLink[KS Key, KO Key] interface {
	SubjectUid() KS
	ObjectUid() KO
}

// ILinkStorage stores subject-owned rows. Reads start from the subject uid
// or the full (subject, object) pair.
type ILinkStorage[T any, KS Key, KO Key] interface {
	GetLink(KS, KO) (T, error)
	GetLinksForSubjects([]KS, func(T) bool) error
	GetAll(func(T) bool) error
	PutLinks([]T) error
	DeleteLinks([]IUidLink[KS, KO]) error
	DeleteLinksForSubjects([]KS) error
	Clear() error
}

func NewUidLink[KS Key, KO Key](subjectUid KS, objectUid KO) IUidLink[KS, KO] {
	return &uidLink[KS, KO]{
		subjectUid: subjectUid,
		objectUid:  objectUid,
	}
}

type uidLink[KS Key, KO Key] struct {
	subjectUid KS
	objectUid  KO
}

func (link *uidLink[KS, KO]) SubjectUid() KS {
	return link.subjectUid
}
func (link *uidLink[KS, KO]) ObjectUid() KO {
	return link.objectUid
}
