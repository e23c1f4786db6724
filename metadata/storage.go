package metadata

import (
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/persistence"
)

type MetadataStorage interface {
	GetFlows() ([]model.Flow, bool, error)
	SaveFlows(flows []model.Flow) error
	GetSelectedFlowId() (string, error)
	SaveSelectedFlowId(id string) error
}

var _ MetadataStorage = new(metadataStorage)

type metadataStorage struct {
	storage persistence.Storage
}

func NewMetadataStorage(storage persistence.Storage) MetadataStorage {
	return &metadataStorage{
		storage: storage,
	}
}

func (s *metadataStorage) GetFlows() ([]model.Flow, bool, error) {
	var flows []model.Flow
	found, err := s.storage.Get(persistence.FLOWS_KEY, &flows)
	if err != nil {
		return nil, false, err
	}
	return flows, found, nil
}

func (s *metadataStorage) SaveFlows(flows []model.Flow) error {
	return s.storage.Set(persistence.FLOWS_KEY, flows)
}

func (s *metadataStorage) GetSelectedFlowId() (string, error) {
	var id string
	if _, err := s.storage.Get(persistence.SELECTED_FLOW_KEY, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *metadataStorage) SaveSelectedFlowId(id string) error {
	if id == "" {
		return s.storage.Remove(persistence.SELECTED_FLOW_KEY)
	}
	return s.storage.Set(persistence.SELECTED_FLOW_KEY, id)
}
