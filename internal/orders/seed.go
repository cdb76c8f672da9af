package orders

// Seed returns the starter snapshot used when no usable local state exists:
// a small, self-consistent data set so the first screen is not empty.
func Seed() Store {
	trainingGo := Training{ID: NewID(), Name: "Go Fundamentals"}
	trainingSQL := Training{ID: NewID(), Name: "Advanced SQL"}
	customerAcme := Customer{ID: NewID(), Name: "Acme Corp"}
	customerNorth := Customer{ID: NewID(), Name: "Northwind Ltd"}
	producerLena := Producer{ID: NewID(), Name: "Lena Fischer", Rate: 600, Markup: 200}
	producerMarko := Producer{ID: NewID(), Name: "Marko Ilic", Rate: 650, Markup: 150}

	return Store{
		Version:   StoreVersion,
		Trainings: []Training{trainingGo, trainingSQL},
		Customers: []Customer{customerAcme, customerNorth},
		Producers: []Producer{producerLena, producerMarko},
		POs: []PO{
			{
				ID:         NewID(),
				PONumber:   "PO-1001",
				TrainingID: trainingGo.ID,
				CustomerID: customerAcme.ID,
				Status:     POStatusSent,
				Sessions: []Session{
					{ID: NewID(), Date: Today(), ProducerID: producerLena.ID, Units: 1},
					{ID: NewID(), Date: AddDays(Today(), 7), ProducerID: producerMarko.ID, Units: 2},
				},
			},
			{
				ID:         NewID(),
				PONumber:   "PO-1002",
				TrainingID: trainingSQL.ID,
				CustomerID: customerNorth.ID,
				Status:     POStatusDraft,
				Sessions:   []Session{},
			},
		},
	}
}
