package engine

// Error codes reported by the EPANET-MSX engine.
const (
	ErrMemory          Status = 501
	ErrNoEpanetFile    Status = 502
	ErrOpenMsxFile     Status = 503
	ErrOpenHydFile     Status = 504
	ErrReadHydFile     Status = 505
	ErrMsxInput        Status = 506
	ErrNumPipeExpr     Status = 507
	ErrNumTankExpr     Status = 508
	ErrIntegrator      Status = 509
	ErrNewton          Status = 510
	ErrOpenOutFile     Status = 511
	ErrIOOutFile       Status = 512
	ErrIntegrate       Status = 513
	ErrEquilibrium     Status = 514
	ErrInvalidObjType  Status = 515
	ErrInvalidObjIndex Status = 516
	ErrUndefinedObjID  Status = 517
	ErrInvalidObjParam Status = 518
	ErrNotOpened       Status = 519
	ErrAlreadyOpened   Status = 520
	ErrOpenRptFile     Status = 521
	ErrCompile         Status = 522
	ErrCompiledLoad    Status = 523
	ErrIllegalMath     Status = 524
)

// Messages is the engine's own text for its error codes, as returned by
// MSXgeterror. Backends never consult it; the in-memory engine and the CLI do.
var Messages = map[Status]string{
	ErrMemory:          "Error 501 - insufficient memory available.",
	ErrNoEpanetFile:    "Error 502 - no EPANET data file supplied.",
	ErrOpenMsxFile:     "Error 503 - could not open MSX input file.",
	ErrOpenHydFile:     "Error 504 - could not open hydraulic results file.",
	ErrReadHydFile:     "Error 505 - could not read hydraulic results file.",
	ErrMsxInput:        "Error 506 - could not read MSX input file.",
	ErrNumPipeExpr:     "Error 507 - too few pipe reaction expressions.",
	ErrNumTankExpr:     "Error 508 - too few tank reaction expressions.",
	ErrIntegrator:      "Error 509 - could not open differential equation solver.",
	ErrNewton:          "Error 510 - could not open algebraic equation solver.",
	ErrOpenOutFile:     "Error 511 - could not open binary results file.",
	ErrIOOutFile:       "Error 512 - read/write error on binary results file.",
	ErrIntegrate:       "Error 513 - could not integrate reaction rate expressions.",
	ErrEquilibrium:     "Error 514 - could not solve reaction equilibrium expressions.",
	ErrInvalidObjType:  "Error 515 - reference made to an unknown type of object.",
	ErrInvalidObjIndex: "Error 516 - reference made to an illegal object index.",
	ErrUndefinedObjID:  "Error 517 - reference made to an undefined object ID.",
	ErrInvalidObjParam: "Error 518 - invalid property values were specified.",
	ErrNotOpened:       "Error 519 - an MSX project was not opened.",
	ErrAlreadyOpened:   "Error 520 - an MSX project is already opened.",
	ErrOpenRptFile:     "Error 521 - could not open MSX report file.",
	ErrCompile:         "Error 522 - could not compile chemistry functions.",
	ErrCompiledLoad:    "Error 523 - could not load functions from compiled chemistry file.",
	ErrIllegalMath:     "Error 524 - illegal math operation.",
}
