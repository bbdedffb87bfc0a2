// Package category provides the standard book category taxonomy, normalization,
// and suggestion helpers used by the catalog.
package category

// Standard category names.
const (
	ComputerIT     = "컴퓨터/IT"
	Literature     = "문학"
	Science        = "과학"
	Philosophy     = "철학"
	History        = "역사"
	Arts           = "예술"
	Language       = "언어"
	SocialScience  = "사회과학"
	NaturalScience = "자연과학"
	Technology     = "기술과학"
	Religion       = "종교"
	General        = "총류"
)

// Seed defines a standard category with its description and sub-categories.
type Seed struct {
	Name          string
	Description   string
	SubCategories []string
}

// Standard is the built-in taxonomy, in display order.
var Standard = []Seed{
	{
		Name:          ComputerIT,
		Description:   "프로그래밍, 소프트웨어, 하드웨어, 네트워크 관련 도서",
		SubCategories: []string{"프로그래밍", "데이터베이스", "네트워크", "AI/ML", "웹개발"},
	},
	{
		Name:          Literature,
		Description:   "소설, 시, 수필, 희곡 등 문학 작품",
		SubCategories: []string{"한국문학", "외국문학", "고전문학", "현대문학"},
	},
	{
		Name:          Science,
		Description:   "과학 전반에 관한 도서",
		SubCategories: []string{"물리학", "화학", "생물학", "지구과학", "천문학"},
	},
	{
		Name:          Philosophy,
		Description:   "철학, 심리학, 윤리학 관련 도서",
		SubCategories: []string{"서양철학", "동양철학", "심리학", "윤리학"},
	},
	{
		Name:          History,
		Description:   "역사, 지리, 전기 관련 도서",
		SubCategories: []string{"한국사", "세계사", "근현대사", "고대사"},
	},
	{
		Name:          Arts,
		Description:   "음악, 미술, 사진, 건축, 조각 관련 도서",
		SubCategories: []string{"음악", "미술", "사진", "영화", "연극"},
	},
	{
		Name:          Language,
		Description:   "언어학, 어학 관련 도서",
		SubCategories: []string{"한국어", "영어", "중국어", "일본어", "기타언어"},
	},
	{
		Name:          SocialScience,
		Description:   "정치학, 법학, 경제학, 사회학, 교육학 관련 도서",
		SubCategories: []string{"정치학", "경제학", "사회학", "교육학", "법학"},
	},
	{
		Name:          NaturalScience,
		Description:   "수학, 물리학, 화학, 생물학, 지구과학 관련 도서",
		SubCategories: []string{"수학", "물리학", "화학", "생물학", "지구과학"},
	},
	{
		Name:          Technology,
		Description:   "의학, 공학, 건축학, 기계공학, 전기공학 관련 도서",
		SubCategories: []string{"의학", "공학", "건축학", "기계공학", "전기공학"},
	},
	{
		Name:          Religion,
		Description:   "종교, 기독교, 불교, 기타 종교 관련 도서",
		SubCategories: []string{"기독교", "불교", "이슬람교", "힌두교", "기타종교"},
	},
	{
		Name:          General,
		Description:   "백과사전, 논문집, 도서관학, 정보학 관련 도서",
		SubCategories: []string{"백과사전", "논문집", "도서관학", "정보학", "기타"},
	},
}

var byName = func() map[string]Seed {
	m := make(map[string]Seed, len(Standard))
	for _, s := range Standard {
		m[s.Name] = s
	}
	return m
}()

// Names returns the standard category names in display order.
func Names() []string {
	names := make([]string, len(Standard))
	for i, s := range Standard {
		names[i] = s.Name
	}
	return names
}

// IsStandard reports whether name is one of the standard categories.
func IsStandard(name string) bool {
	_, ok := byName[Normalize(name)]
	return ok
}

// Description returns the description of a standard category, or "".
func Description(name string) string {
	return byName[Normalize(name)].Description
}

// SubCategories returns the sub-categories of a standard category, or nil.
func SubCategories(name string) []string {
	return byName[Normalize(name)].SubCategories
}

// Info describes a category for API responses.
type Info struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	IsStandard    bool     `json:"is_standard"`
	SubCategories []string `json:"sub_categories"`
}

// InfoFor returns the Info for any category name, standard or not.
func InfoFor(name string) Info {
	name = Normalize(name)
	seed, ok := byName[name]
	subs := seed.SubCategories
	if subs == nil {
		subs = []string{}
	}
	return Info{
		Name:          name,
		Description:   seed.Description,
		IsStandard:    ok,
		SubCategories: subs,
	}
}
