package domain

import "fmt"

// Dispatcher tags a structural (or editing) operation on the collection tree.
type Dispatcher string

const (
	DispatchAddCollection         Dispatcher = "addCollection"
	DispatchAddFolder             Dispatcher = "addFolder"
	DispatchRemoveFolder          Dispatcher = "removeFolder"
	DispatchRemoveCollection      Dispatcher = "removeCollection"
	DispatchRemoveRequest         Dispatcher = "removeRequest"
	DispatchMoveFolder            Dispatcher = "moveFolder"
	DispatchMoveRequest           Dispatcher = "moveRequest"
	DispatchDuplicateCollection   Dispatcher = "duplicateCollection"
	DispatchSaveRequestAs         Dispatcher = "saveRequestAs"
	DispatchAppendCollections     Dispatcher = "appendCollections"
	DispatchUpdateRequestOrder    Dispatcher = "updateRequestOrder"
	DispatchUpdateCollectionOrder Dispatcher = "updateCollectionOrder"
	DispatchSetCollections        Dispatcher = "setCollections"

	// Editing dispatchers change node contents but never the tree shape.
	DispatchEditCollection Dispatcher = "editCollection"
	DispatchEditFolder     Dispatcher = "editFolder"
	DispatchEditRequest    Dispatcher = "editRequest"
)

// Structural reports whether the dispatcher can change the shape of the tree.
func (d Dispatcher) Structural() bool {
	switch d {
	case DispatchEditCollection, DispatchEditFolder, DispatchEditRequest:
		return false
	}
	return true
}

// Payload is implemented by every dispatch payload type.
type Payload interface {
	dispatcher() Dispatcher
}

// Dispatch is one entry of the store's dispatch log. Expect pins the nodes
// the payload's index paths were computed from.
type Dispatch struct {
	Dispatcher Dispatcher    `json:"dispatcher"`
	Payload    Payload       `json:"payload"`
	Expect     []Expectation `json:"expect,omitempty"`
}

// NewDispatch wraps a payload with its dispatcher tag.
func NewDispatch(p Payload) Dispatch {
	return Dispatch{Dispatcher: p.dispatcher(), Payload: p}
}

// Expecting returns a copy of d that only applies while every exp holds.
func (d Dispatch) Expecting(exps ...Expectation) Dispatch {
	d.Expect = append(append([]Expectation(nil), d.Expect...), exps...)
	return d
}

// Check returns ErrStaleTarget if any expectation fails against tree.
func (d Dispatch) Check(tree []Collection) error {
	for _, e := range d.Expect {
		if !e.Holds(tree) {
			return fmt.Errorf("%w: %s no longer holds %s", ErrStaleTarget, e.Path, e.RefID)
		}
	}
	return nil
}

// Expectation states that the node at Path carries RefID. With Request set,
// Path is a request path.
type Expectation struct {
	Path    IndexPath `json:"path"`
	Request bool      `json:"request,omitempty"`
	RefID   RefID     `json:"refId"`
}

// Holds reports whether tree still has the expected node at Path.
func (e Expectation) Holds(tree []Collection) bool {
	if e.Request {
		req, ok := RequestAt(tree, e.Path)
		return ok && req.RefID == e.RefID
	}
	node, ok := NavigateToFolder(tree, e.Path)
	return ok && node.RefID == e.RefID
}

type AddCollectionPayload struct {
	Collection Collection `json:"collection"`
}

type AddFolderPayload struct {
	Path   IndexPath  `json:"path"`
	Folder Collection `json:"folder"`
}

type RemoveFolderPayload struct {
	Path IndexPath `json:"path"`
}

type RemoveCollectionPayload struct {
	CollectionIndex int `json:"collectionIndex"`
}

type RemoveRequestPayload struct {
	Path         IndexPath `json:"path"`
	RequestIndex int       `json:"requestIndex"`
}

// MoveFolderPayload moves the folder at Path to the end of the folders of
// DestinationPath, or to the end of the root sequence when DestinationPath
// is nil. DestinationPath is expressed in pre-move coordinates.
type MoveFolderPayload struct {
	Path            IndexPath `json:"path"`
	DestinationPath IndexPath `json:"destinationPath"`
}

// MoveRequestPayload moves a request to the end of the requests of
// DestinationPath (pre-move coordinates).
type MoveRequestPayload struct {
	Path            IndexPath `json:"path"`
	RequestIndex    int       `json:"requestIndex"`
	DestinationPath IndexPath `json:"destinationPath"`
}

type DuplicateCollectionPayload struct {
	Path IndexPath `json:"path"`
}

type SaveRequestAsPayload struct {
	Path    IndexPath `json:"path"`
	Request Request   `json:"request"`
}

type AppendCollectionsPayload struct {
	Entries []Collection `json:"entries"`
}

// UpdateRequestOrderPayload reorders a request inside one collection. A nil
// DestinationRequestIndex moves it to the end.
type UpdateRequestOrderPayload struct {
	RequestIndex              int       `json:"requestIndex"`
	DestinationRequestIndex   *int      `json:"destinationRequestIndex"`
	DestinationCollectionPath IndexPath `json:"destinationCollectionPath"`
}

// UpdateCollectionOrderPayload reorders a collection among its siblings.
// Both paths share a parent; a nil destination moves it to the end.
type UpdateCollectionOrderPayload struct {
	CollectionIndex            IndexPath `json:"collectionIndex"`
	DestinationCollectionIndex IndexPath `json:"destinationCollectionIndex"`
}

type SetCollectionsPayload struct {
	Entries []Collection `json:"entries"`
}

// EditCollectionPayload replaces the metadata (name, headers, auth) of a
// root collection; children are kept.
type EditCollectionPayload struct {
	CollectionIndex int        `json:"collectionIndex"`
	Collection      Collection `json:"collection"`
}

// EditFolderPayload replaces the metadata of a nested folder.
type EditFolderPayload struct {
	Path   IndexPath  `json:"path"`
	Folder Collection `json:"folder"`
}

// EditRequestPayload replaces a request in place. The stored ref id is kept.
type EditRequestPayload struct {
	Path         IndexPath `json:"path"`
	RequestIndex int       `json:"requestIndex"`
	Request      Request   `json:"request"`
}

func (AddCollectionPayload) dispatcher() Dispatcher         { return DispatchAddCollection }
func (AddFolderPayload) dispatcher() Dispatcher             { return DispatchAddFolder }
func (RemoveFolderPayload) dispatcher() Dispatcher          { return DispatchRemoveFolder }
func (RemoveCollectionPayload) dispatcher() Dispatcher      { return DispatchRemoveCollection }
func (RemoveRequestPayload) dispatcher() Dispatcher         { return DispatchRemoveRequest }
func (MoveFolderPayload) dispatcher() Dispatcher            { return DispatchMoveFolder }
func (MoveRequestPayload) dispatcher() Dispatcher           { return DispatchMoveRequest }
func (DuplicateCollectionPayload) dispatcher() Dispatcher   { return DispatchDuplicateCollection }
func (SaveRequestAsPayload) dispatcher() Dispatcher         { return DispatchSaveRequestAs }
func (AppendCollectionsPayload) dispatcher() Dispatcher     { return DispatchAppendCollections }
func (UpdateRequestOrderPayload) dispatcher() Dispatcher    { return DispatchUpdateRequestOrder }
func (UpdateCollectionOrderPayload) dispatcher() Dispatcher { return DispatchUpdateCollectionOrder }
func (SetCollectionsPayload) dispatcher() Dispatcher        { return DispatchSetCollections }
func (EditCollectionPayload) dispatcher() Dispatcher        { return DispatchEditCollection }
func (EditFolderPayload) dispatcher() Dispatcher            { return DispatchEditFolder }
func (EditRequestPayload) dispatcher() Dispatcher           { return DispatchEditRequest }
