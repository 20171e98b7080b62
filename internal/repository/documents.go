// Пакет repository — хранилище состояния Web Module.
// documents.go — in-memory хранилище списков документов.
//
// Документы намеренно не персистентны: список живёт в памяти процесса
// и теряется при рестарте (поведение исходного продукта — список
// пропадает при перезагрузке страницы). Списки принадлежат сессии
// браузера (owner — идентификатор сессии).
//
// Все мутации выполняются через полную замену списка с маппингом
// по идентификатору: обновление отсутствующего документа — no-op,
// опоздавший poll не может "воскресить" удалённый документ.
package repository

import (
	"errors"
	"sync"

	"github.com/legalmitra/web-module/internal/domain/model"
)

// ErrNotFound — документ не найден.
var ErrNotFound = errors.New("документ не найден")

// DocumentStore — потокобезопасное in-memory хранилище документов.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]*model.UploadedDocument // owner → список документов
}

// NewDocumentStore создаёт пустое хранилище.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string][]*model.UploadedDocument),
	}
}

// Append добавляет документ в конец списка владельца.
func (s *DocumentStore) Append(owner string, doc *model.UploadedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[owner] = append(s.docs[owner], doc)
}

// List возвращает копию списка документов владельца в порядке добавления.
func (s *DocumentStore) List(owner string) []*model.UploadedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.docs[owner]
	result := make([]*model.UploadedDocument, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.Clone())
	}
	return result
}

// Get возвращает копию документа по идентификатору.
func (s *DocumentStore) Get(owner, id string) (*model.UploadedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs[owner] {
		if d.ID == id {
			return d.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateByID применяет fn к документу с указанным идентификатором,
// заменяя список целиком (map по идентификатору). Если документ
// отсутствует — no-op: возвращается false, ошибки нет. Это контракт
// workflow: опоздавший poll по удалённому документу ничего не меняет.
func (s *DocumentStore) UpdateByID(owner, id string, fn func(*model.UploadedDocument)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.docs[owner]
	updated := false

	mapped := make([]*model.UploadedDocument, 0, len(docs))
	for _, d := range docs {
		if d.ID == id {
			fn(d)
			updated = true
		}
		mapped = append(mapped, d)
	}
	s.docs[owner] = mapped

	return updated
}

// Remove удаляет документ из списка владельца.
// Возвращает ErrNotFound, если документа нет.
func (s *DocumentStore) Remove(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.docs[owner]
	filtered := make([]*model.UploadedDocument, 0, len(docs))
	found := false
	for _, d := range docs {
		if d.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, d)
	}

	if !found {
		return ErrNotFound
	}

	if len(filtered) == 0 {
		delete(s.docs, owner)
	} else {
		s.docs[owner] = filtered
	}
	return nil
}
