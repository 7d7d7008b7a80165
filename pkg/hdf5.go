package nwcal

import (
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// Compound rows written to the output file. Field names become HDF5 column
// names, so they follow the on-disk naming rather than Go style.

type RunInfoHDF5 struct {
	run_number int32
	n_bars     int32
	seed       int64
}

type BarParamsHDF5 struct {
	bar int32

	fast_threshold_L float64
	lin_p0_L         float64
	lin_p1_L         float64
	quad_p0_L        float64
	quad_p1_L        float64
	quad_p2_L        float64

	fast_threshold_R float64
	lin_p0_R         float64
	lin_p1_R         float64
	quad_p0_R        float64
	quad_p1_R        float64
	quad_p2_R        float64

	gain_ratio         float64
	attenuation_length float64
}

type CorrectedEventHDF5 struct {
	bar            int32
	pos            float64
	total_L        float64
	total_R        float64
	fast_L         float64
	fast_R         float64
	total_f_L      float64
	total_f_R      float64
	light_gm       float64
	both_saturated uint8
}

func createHDF5File(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, name string) (*hdf5.Group, error) {
	return file.CreateGroup(name)
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, fmt.Errorf("dataspace for %s: %w", name, err)
	}

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, fmt.Errorf("property list for %s: %w", name, err)
	}
	chunks := []uint{32768}
	plist.SetChunk(chunks)
	plist.SetDeflate(compression)

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, fmt.Errorf("datatype for %s: %w", name, err)
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array)
}

func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dims := []uint{length}
	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	dimsGot, _, err := dataset.Space().SimpleExtentDims()
	if err != nil {
		return err
	}
	rowsInFile := dimsGot[0]
	if err := dataset.Resize([]uint{rowsInFile + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{rowsInFile}
	count := []uint{length}
	filespace.SelectHyperslab(start, nil, count, nil)

	return dataset.WriteSubset(data, dataspace, filespace)
}
