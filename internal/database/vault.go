package database

type ShareStorage struct {
	ShareUid_    string `db:"share_uid"`
	Revision_    int64  `db:"revision"`
	Name_        []byte `db:"name"`
	Data_        []byte `db:"data"`
	Owner_       bool   `db:"owner"`
	CreateTime_  int64  `db:"create_time"`
	MemberCount_ int32  `db:"member_count"`
}

func (s *ShareStorage) ShareUid() string {
	return s.ShareUid_
}
func (s *ShareStorage) Revision() int64 {
	return s.Revision_
}
func (s *ShareStorage) Name() []byte {
	return s.Name_
}
func (s *ShareStorage) Data() []byte {
	return s.Data_
}
func (s *ShareStorage) Owner() bool {
	return s.Owner_
}
func (s *ShareStorage) CreateTime() int64 {
	return s.CreateTime_
}
func (s *ShareStorage) MemberCount() int32 {
	return s.MemberCount_
}
func (s *ShareStorage) Uid() string {
	return s.ShareUid()
}

type ShareKeyStorage struct {
	ShareUid_     string `db:"share_uid"`
	KeyRotation_  int64  `db:"key_rotation"`
	EncryptedKey_ []byte `db:"encrypted_key"`
	ValidSince_   int64  `db:"valid_since"`
}

func (sk *ShareKeyStorage) ShareUid() string {
	return sk.ShareUid_
}
func (sk *ShareKeyStorage) KeyRotation() int64 {
	return sk.KeyRotation_
}
func (sk *ShareKeyStorage) EncryptedKey() []byte {
	return sk.EncryptedKey_
}
func (sk *ShareKeyStorage) ValidSince() int64 {
	return sk.ValidSince_
}
func (sk *ShareKeyStorage) SubjectUid() string {
	return sk.ShareUid()
}
func (sk *ShareKeyStorage) ObjectUid() int64 {
	return sk.KeyRotation()
}

type ItemStorage struct {
	ShareUid_             string `db:"share_uid"`
	ItemUid_              string `db:"item_uid"`
	Revision_             int64  `db:"revision"`
	ContentFormatVersion_ int32  `db:"content_format_version"`
	KeyRotation_          int64  `db:"key_rotation"`
	EncryptedContent_     []byte `db:"encrypted_content"`
	State_                int32  `db:"state"`
	AliasEmail_           string `db:"alias_email"`
	Pinned_               bool   `db:"pinned"`
	IsLogInItem_          bool   `db:"is_login_item"`
	CreateTime_           int64  `db:"create_time"`
	ModifyTime_           int64  `db:"modify_time"`
	LastUseTime_          int64  `db:"last_use_time"`
}

func (i *ItemStorage) ShareUid() string {
	return i.ShareUid_
}
func (i *ItemStorage) ItemUid() string {
	return i.ItemUid_
}
func (i *ItemStorage) Revision() int64 {
	return i.Revision_
}
func (i *ItemStorage) ContentFormatVersion() int32 {
	return i.ContentFormatVersion_
}
func (i *ItemStorage) KeyRotation() int64 {
	return i.KeyRotation_
}
func (i *ItemStorage) EncryptedContent() []byte {
	return i.EncryptedContent_
}
func (i *ItemStorage) State() int32 {
	return i.State_
}
func (i *ItemStorage) AliasEmail() string {
	return i.AliasEmail_
}
func (i *ItemStorage) Pinned() bool {
	return i.Pinned_
}
func (i *ItemStorage) IsLogInItem() bool {
	return i.IsLogInItem_
}
func (i *ItemStorage) CreateTime() int64 {
	return i.CreateTime_
}
func (i *ItemStorage) ModifyTime() int64 {
	return i.ModifyTime_
}
func (i *ItemStorage) LastUseTime() int64 {
	return i.LastUseTime_
}
func (i *ItemStorage) SubjectUid() string {
	return i.ShareUid()
}
func (i *ItemStorage) ObjectUid() string {
	return i.ItemUid()
}

type AccessStorage struct {
	VaultLimit_ int64 `db:"vault_limit"`
	AliasLimit_ int64 `db:"alias_limit"`
	TotpLimit_  int64 `db:"totp_limit"`
	TrialEnd_   int64 `db:"trial_end"`
}

func (a *AccessStorage) VaultLimit() int64 {
	return a.VaultLimit_
}
func (a *AccessStorage) AliasLimit() int64 {
	return a.AliasLimit_
}
func (a *AccessStorage) TotpLimit() int64 {
	return a.TotpLimit_
}
func (a *AccessStorage) TrialEnd() int64 {
	return a.TrialEnd_
}

type UserSettingsStorage struct {
	Email_        string `db:"email"`
	ProfileName_  string `db:"profile_name"`
	LastSyncTime_ int64  `db:"last_sync_time"`
}

func (us *UserSettingsStorage) Email() string {
	return us.Email_
}
func (us *UserSettingsStorage) ProfileName() string {
	return us.ProfileName_
}
func (us *UserSettingsStorage) LastSyncTime() int64 {
	return us.LastSyncTime_
}
func (us *UserSettingsStorage) SetEmail(email string) {
	us.Email_ = email
}
func (us *UserSettingsStorage) SetProfileName(name string) {
	us.ProfileName_ = name
}
func (us *UserSettingsStorage) SetLastSyncTime(lastSyncTime int64) {
	us.LastSyncTime_ = lastSyncTime
}
