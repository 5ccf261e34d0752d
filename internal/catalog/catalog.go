package catalog

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/wonny/fundcompare/backend/internal/contracts"
)

const document = "catalog"

// Fund is an investment fund and its share classes, in document order
type Fund struct {
	ID           string       `json:"fund_id"`
	Name         string       `json:"fund_name"`
	ShareClasses []ShareClass `json:"share_classes"`
}

// ShareClass is a tradeable variant of a fund.
// Its ID is unique within the parent fund only.
type ShareClass struct {
	ID     string `json:"class_id"`
	Name   string `json:"class_name"`
	FundID string `json:"fund_id"`
}

// Label is the dropdown text of the class
func (c ShareClass) Label() string {
	return "Class " + c.Name
}

// Index is a read-only lookup over the loaded catalog.
// ⭐ SSOT: 펀드/클래스 조회는 이 인덱스에서만
type Index struct {
	funds   []Fund
	byID    map[string]int
	classes map[string]map[string]int // fund id -> class id -> position
}

type wireCatalog struct {
	Funds *[]wireFund `json:"Funds" yaml:"Funds"`
}

type wireFund struct {
	FundID       *contracts.FlexID `json:"FundId" yaml:"FundId"`
	FundName     *string           `json:"FundName" yaml:"FundName"`
	ShareClasses []wireShareClass  `json:"ShareClasses" yaml:"ShareClasses"`
}

type wireShareClass struct {
	FundClassID *contracts.FlexID `json:"FundClassId" yaml:"FundClassId"`
	ClassName   *string           `json:"ClassName" yaml:"ClassName"`
}

// Parse builds an Index from a JSON catalog document
func Parse(raw []byte) (*Index, error) {
	var doc wireCatalog
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, contracts.NewParseError(document, err, "invalid JSON document")
	}
	return build(doc)
}

// ParseYAML builds an Index from a YAML catalog document with the same shape
func ParseYAML(raw []byte) (*Index, error) {
	var doc wireCatalog
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, contracts.NewParseError(document, err, "invalid YAML document")
	}
	return build(doc)
}

func build(doc wireCatalog) (*Index, error) {
	if doc.Funds == nil {
		return nil, contracts.NewParseError(document, nil, "Funds array not found")
	}

	idx := &Index{
		funds:   make([]Fund, 0, len(*doc.Funds)),
		byID:    make(map[string]int, len(*doc.Funds)),
		classes: make(map[string]map[string]int, len(*doc.Funds)),
	}

	for i, wf := range *doc.Funds {
		if wf.FundID == nil || wf.FundID.IsBlank() {
			return nil, contracts.NewParseError(document, nil, "fund #%d lacks FundId", i)
		}
		if wf.FundName == nil {
			return nil, contracts.NewParseError(document, nil, "fund %s lacks FundName", *wf.FundID)
		}

		fund := Fund{
			ID:           wf.FundID.String(),
			Name:         *wf.FundName,
			ShareClasses: make([]ShareClass, 0, len(wf.ShareClasses)),
		}

		classPos := make(map[string]int, len(wf.ShareClasses))
		for j, wc := range wf.ShareClasses {
			if wc.FundClassID == nil || wc.FundClassID.IsBlank() {
				return nil, contracts.NewParseError(document, nil, "fund %s share class #%d lacks FundClassId", fund.ID, j)
			}
			if wc.ClassName == nil {
				return nil, contracts.NewParseError(document, nil, "fund %s share class %s lacks ClassName", fund.ID, *wc.FundClassID)
			}
			class := ShareClass{
				ID:     wc.FundClassID.String(),
				Name:   *wc.ClassName,
				FundID: fund.ID,
			}
			// first occurrence wins, in lookups and listings alike
			if _, dup := classPos[class.ID]; dup {
				continue
			}
			classPos[class.ID] = len(fund.ShareClasses)
			fund.ShareClasses = append(fund.ShareClasses, class)
		}

		if _, dup := idx.byID[fund.ID]; dup {
			continue
		}
		idx.byID[fund.ID] = len(idx.funds)
		idx.funds = append(idx.funds, fund)
		idx.classes[fund.ID] = classPos
	}

	return idx, nil
}

// Funds returns every fund in document order
func (idx *Index) Funds() []Fund {
	out := make([]Fund, len(idx.funds))
	copy(out, idx.funds)
	return out
}

// Len returns the number of funds
func (idx *Index) Len() int {
	return len(idx.funds)
}

// FindFund looks up a fund by id
func (idx *Index) FindFund(fundID string) (*Fund, bool) {
	pos, ok := idx.byID[fundID]
	if !ok {
		return nil, false
	}
	fund := idx.funds[pos]
	return &fund, true
}

// FindShareClass looks up a class within the identified fund only
func (idx *Index) FindShareClass(fundID, classID string) (*ShareClass, bool) {
	fundPos, ok := idx.byID[fundID]
	if !ok {
		return nil, false
	}
	classPos, ok := idx.classes[fundID][classID]
	if !ok {
		return nil, false
	}
	class := idx.funds[fundPos].ShareClasses[classPos]
	return &class, true
}

// ShareClasses returns the classes of a fund, the response to a "fund selected" event
func (idx *Index) ShareClasses(fundID string) ([]ShareClass, error) {
	fund, ok := idx.FindFund(fundID)
	if !ok {
		return nil, fmt.Errorf("fund %q: %w", fundID, contracts.ErrNotFound)
	}
	return fund.ShareClasses, nil
}
