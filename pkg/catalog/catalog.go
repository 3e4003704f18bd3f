// Package catalog holds the fixed library catalog used by the SPARQL lab:
// twenty books and thirteen authors, expanded into subject-predicate-object
// facts in a stable order.
package catalog

import (
	"sync"

	"github.com/coolbeans/sparqlab/pkg/store"
)

// Namespace IRIs used when the catalog is exported as RDF.
const (
	BaseNS    = "http://library.example.org/"
	DCNS      = "http://purl.org/dc/elements/1.1/"
	DCTermsNS = "http://purl.org/dc/terms/"
	RDFSNS    = "http://www.w3.org/2000/01/rdf-schema#"
	RDFNS     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// Predicate local names.
const (
	PredType         = "type"
	PredTitle        = "title"
	PredCreator      = "creator"
	PredSubject      = "subject"
	PredResourceType = "resourceType"
	PredIssued       = "issued"
	PredISBN         = "isbn"
	PredLabel        = "label"
	PredNationality  = "nationality"
)

// Class and resource type names.
const (
	ClassBook        = "Book"
	ClassAuthor      = "Author"
	TypeEBook        = "EBook"
	TypePhysicalBook = "PhysicalBook"
)

// Book is one bibliographic record.
type Book struct {
	ID           string   // identifier (e.g., "book3")
	Title        string   // dc:title
	Creator      string   // dc:creator, an author ID
	Subjects     []string // dc:subject, one fact per entry
	ResourceType string   // EBook or PhysicalBook
	Issued       string   // dcterms:issued, publication year
	ISBN         string   // optional; empty when absent
}

// Author is one authority record.
type Author struct {
	ID          string // identifier (e.g., "author2")
	Label       string // rdfs:label
	Nationality string
}

var books = []Book{
	{ID: "book1", Title: "해리포터와 마법사의 돌", Creator: "author1", Subjects: []string{"판타지", "소설"}, ResourceType: TypePhysicalBook, Issued: "1997", ISBN: "978-89-8392-476-1"},
	{ID: "book2", Title: "해리포터와 비밀의 방", Creator: "author1", Subjects: []string{"판타지", "소설"}, ResourceType: TypeEBook, Issued: "1998"},
	{ID: "book3", Title: "클린 코드", Creator: "author2", Subjects: []string{"프로그래밍", "소프트웨어 공학"}, ResourceType: TypeEBook, Issued: "2008"},
	{ID: "book4", Title: "리팩토링", Creator: "author3", Subjects: []string{"프로그래밍", "소프트웨어 공학"}, ResourceType: TypePhysicalBook, Issued: "1999"},
	{ID: "book5", Title: "소년이 온다", Creator: "author4", Subjects: []string{"문학", "한국소설"}, ResourceType: TypePhysicalBook, Issued: "2014"},
	{ID: "book6", Title: "채식주의자", Creator: "author4", Subjects: []string{"문학", "한국소설"}, ResourceType: TypeEBook, Issued: "2007"},
	{ID: "book7", Title: "데이터베이스 시스템", Creator: "author5", Subjects: []string{"데이터베이스", "컴퓨터과학"}, ResourceType: TypePhysicalBook, Issued: "2011"},
	{ID: "book8", Title: "시맨틱 웹 입문", Creator: "author6", Subjects: []string{"시맨틱 웹", "온톨로지"}, ResourceType: TypeEBook, Issued: "2015"},
	{ID: "book9", Title: "RDF와 SPARQL", Creator: "author6", Subjects: []string{"RDF", "SPARQL", "링크드 데이터"}, ResourceType: TypeEBook, Issued: "2018"},
	{ID: "book10", Title: "도서관 정보학 개론", Creator: "author7", Subjects: []string{"도서관학", "정보학"}, ResourceType: TypePhysicalBook, Issued: "2010"},
	{ID: "book11", Title: "메타데이터의 이해", Creator: "author7", Subjects: []string{"메타데이터", "정보조직"}, ResourceType: TypeEBook, Issued: "2016"},
	{ID: "book12", Title: "1984", Creator: "author8", Subjects: []string{"디스토피아", "소설"}, ResourceType: TypePhysicalBook, Issued: "1949"},
	{ID: "book13", Title: "동물농장", Creator: "author8", Subjects: []string{"우화", "소설"}, ResourceType: TypePhysicalBook, Issued: "1945"},
	{ID: "book14", Title: "코스모스", Creator: "author9", Subjects: []string{"천문학", "과학"}, ResourceType: TypePhysicalBook, Issued: "1980"},
	{ID: "book15", Title: "총, 균, 쇠", Creator: "author10", Subjects: []string{"역사", "인류학"}, ResourceType: TypeEBook, Issued: "1997"},
	{ID: "book16", Title: "사피엔스", Creator: "author11", Subjects: []string{"역사", "인류학"}, ResourceType: TypePhysicalBook, Issued: "2011"},
	{ID: "book17", Title: "호모 데우스", Creator: "author11", Subjects: []string{"미래학", "기술"}, ResourceType: TypeEBook, Issued: "2015"},
	{ID: "book18", Title: "파이썬으로 배우는 머신러닝", Creator: "author12", Subjects: []string{"머신러닝", "프로그래밍"}, ResourceType: TypeEBook, Issued: "2019"},
	{ID: "book19", Title: "딥러닝의 정석", Creator: "author12", Subjects: []string{"딥러닝", "인공지능"}, ResourceType: TypeEBook, Issued: "2020"},
	{ID: "book20", Title: "온톨로지 설계와 활용", Creator: "author13", Subjects: []string{"온톨로지", "지식표현"}, ResourceType: TypePhysicalBook, Issued: "2017"},
}

var authors = []Author{
	{ID: "author1", Label: "J.K. 롤링", Nationality: "영국"},
	{ID: "author2", Label: "로버트 C. 마틴", Nationality: "미국"},
	{ID: "author3", Label: "마틴 파울러", Nationality: "영국"},
	{ID: "author4", Label: "한강", Nationality: "한국"},
	{ID: "author5", Label: "엘마스리", Nationality: "미국"},
	{ID: "author6", Label: "김승연", Nationality: "한국"},
	{ID: "author7", Label: "이명희", Nationality: "한국"},
	{ID: "author8", Label: "조지 오웰", Nationality: "영국"},
	{ID: "author9", Label: "칼 세이건", Nationality: "미국"},
	{ID: "author10", Label: "재레드 다이아몬드", Nationality: "미국"},
	{ID: "author11", Label: "유발 하라리", Nationality: "이스라엘"},
	{ID: "author12", Label: "박해선", Nationality: "한국"},
	{ID: "author13", Label: "최윤수", Nationality: "한국"},
}

// Books returns a copy of the book records in catalog order.
func Books() []Book {
	out := make([]Book, len(books))
	for i, b := range books {
		b.Subjects = append([]string(nil), b.Subjects...)
		out[i] = b
	}
	return out
}

// Authors returns a copy of the author records in catalog order.
func Authors() []Author {
	return append([]Author(nil), authors...)
}

// Triples expands the catalog into facts. The order is stable: each book in
// turn (type, title, creator, subjects, resourceType, issued, isbn), then
// each author (type, label, nationality).
func Triples() []store.Triple {
	triples := make([]store.Triple, 0, len(books)*8+len(authors)*3)

	for _, b := range books {
		triples = append(triples,
			store.NewTriple(b.ID, PredType, ClassBook),
			store.NewTriple(b.ID, PredTitle, b.Title),
			store.NewTriple(b.ID, PredCreator, b.Creator),
		)
		for _, subject := range b.Subjects {
			triples = append(triples, store.NewTriple(b.ID, PredSubject, subject))
		}
		triples = append(triples,
			store.NewTriple(b.ID, PredResourceType, b.ResourceType),
			store.NewTriple(b.ID, PredIssued, b.Issued),
		)
		if b.ISBN != "" {
			triples = append(triples, store.NewTriple(b.ID, PredISBN, b.ISBN))
		}
	}

	for _, a := range authors {
		triples = append(triples,
			store.NewTriple(a.ID, PredType, ClassAuthor),
			store.NewTriple(a.ID, PredLabel, a.Label),
			store.NewTriple(a.ID, PredNationality, a.Nationality),
		)
	}

	return triples
}

var sealedStore = sync.OnceValue(func() *store.TripleStore {
	ts := store.NewTripleStore()
	if _, err := ts.BulkAdd(Triples()); err != nil {
		panic("catalog: building store: " + err.Error())
	}
	ts.Seal()
	return ts
})

// Store returns the catalog loaded into a sealed triple store. The store is
// built on first use and shared by every caller.
func Store() *store.TripleStore {
	return sealedStore()
}

// Vocabulary returns the namespace mapping used to export catalog facts as
// RDF.
func Vocabulary() store.Vocabulary {
	return store.Vocabulary{
		Base: BaseNS,
		Predicates: map[string]string{
			PredType:         RDFNS,
			PredTitle:        DCNS,
			PredCreator:      DCNS,
			PredSubject:      DCNS,
			PredIssued:       DCTermsNS,
			PredLabel:        RDFSNS,
			PredResourceType: BaseNS,
			PredISBN:         BaseNS,
			PredNationality:  BaseNS,
		},
		Resources: map[string]bool{
			ClassBook:        true,
			ClassAuthor:      true,
			TypeEBook:        true,
			TypePhysicalBook: true,
		},
		Prefixes: map[string]string{
			BaseNS:    "",
			DCNS:      "dc",
			DCTermsNS: "dcterms",
			RDFSNS:    "rdfs",
			RDFNS:     "rdf",
		},
	}
}
