package mangadex

// Order is a sort direction for list endpoints.
type Order string

const (
	OrderAscending  Order = "asc"
	OrderDescending Order = "desc"
)

// ContentRating is the content rating of a manga.
type ContentRating string

const (
	ContentRatingSafe         ContentRating = "safe"
	ContentRatingSuggestive   ContentRating = "suggestive"
	ContentRatingErotica      ContentRating = "erotica"
	ContentRatingPornographic ContentRating = "pornographic"
)

// Demographic is the publication demographic of a manga.
type Demographic string

const (
	DemographicShounen Demographic = "shounen"
	DemographicShoujo  Demographic = "shoujo"
	DemographicJosei   Demographic = "josei"
	DemographicSeinen  Demographic = "seinen"
)

// MangaStatus is the publication status of a manga.
type MangaStatus string

const (
	MangaStatusOngoing   MangaStatus = "ongoing"
	MangaStatusCompleted MangaStatus = "completed"
	MangaStatusHiatus    MangaStatus = "hiatus"
	MangaStatusCancelled MangaStatus = "cancelled"
)

// ReadingStatus is a user's reading status for a manga.
type ReadingStatus string

const (
	ReadingStatusReading    ReadingStatus = "reading"
	ReadingStatusOnHold     ReadingStatus = "on_hold"
	ReadingStatusPlanToRead ReadingStatus = "plan_to_read"
	ReadingStatusDropped    ReadingStatus = "dropped"
	ReadingStatusReReading  ReadingStatus = "re_reading"
	ReadingStatusCompleted  ReadingStatus = "completed"
)

// Valid reports whether s is a status the API accepts.
func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusReading, ReadingStatusOnHold, ReadingStatusPlanToRead,
		ReadingStatusDropped, ReadingStatusReReading, ReadingStatusCompleted:
		return true
	}
	return false
}

// CustomListVisibility controls who can see a custom list.
type CustomListVisibility string

const (
	VisibilityPublic  CustomListVisibility = "public"
	VisibilityPrivate CustomListVisibility = "private"
)

// ReportCategory is the kind of object a report is filed against.
type ReportCategory string

const (
	ReportCategoryManga           ReportCategory = "manga"
	ReportCategoryChapter         ReportCategory = "chapter"
	ReportCategoryScanlationGroup ReportCategory = "scanlation_group"
	ReportCategoryUser            ReportCategory = "user"
	ReportCategoryAuthor          ReportCategory = "author"
)

// ReportCategories lists every category, in the order the API documents.
var ReportCategories = []ReportCategory{
	ReportCategoryManga,
	ReportCategoryChapter,
	ReportCategoryScanlationGroup,
	ReportCategoryUser,
	ReportCategoryAuthor,
}

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportStatusWaiting      ReportStatus = "waiting"
	ReportStatusAccepted     ReportStatus = "accepted"
	ReportStatusRefused      ReportStatus = "refused"
	ReportStatusAutoresolved ReportStatus = "autoresolved"
)

// MangaRelation is the relation type between two manga.
type MangaRelation string

const (
	RelationMonochrome       MangaRelation = "monochrome"
	RelationMainStory        MangaRelation = "main_story"
	RelationAdaptedFrom      MangaRelation = "adapted_from"
	RelationBasedOn          MangaRelation = "based_on"
	RelationPrequel          MangaRelation = "prequel"
	RelationSideStory        MangaRelation = "side_story"
	RelationDoujinshi        MangaRelation = "doujinshi"
	RelationSameFranchise    MangaRelation = "same_franchise"
	RelationSharedUniverse   MangaRelation = "shared_universe"
	RelationSequel           MangaRelation = "sequel"
	RelationSpinOff          MangaRelation = "spin_off"
	RelationAlternateStory   MangaRelation = "alternate_story"
	RelationPreserialization MangaRelation = "preserialization"
	RelationColored          MangaRelation = "colored"
	RelationSerialization    MangaRelation = "serialization"
	RelationAlternateVersion MangaRelation = "alternate_version"
)

// Relationship types used in includes[] and relationship lists.
const (
	TypeManga           = "manga"
	TypeChapter         = "chapter"
	TypeAuthor          = "author"
	TypeArtist          = "artist"
	TypeCoverArt        = "cover_art"
	TypeScanlationGroup = "scanlation_group"
	TypeUser            = "user"
	TypeLeader          = "leader"
	TypeMember          = "member"
	TypeTag             = "tag"
	TypeCustomList      = "custom_list"
)
