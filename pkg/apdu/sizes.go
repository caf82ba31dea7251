package apdu

// pointSizeBits returns the per-point wire size, in bits, of a single
// object of the given group/variation. Bitfield-packed static groups
// (binary/double-bit input, binary output, IIN) report a size under 8;
// callers round differently for those, see Range.ObjectBytesLen.
//
// The table covers the object set this core understands end to end;
// anything else (including group 120 authentication challenge objects,
// which carry their own internal TLV structure rather than a fixed
// per-point size) reports ErrUnsupportedObject and is left to a later
// core revision.
func pointSizeBits(group, variation uint8) (int, error) {
	switch group {
	case 1: // binary input, static
		switch variation {
		case 1:
			return 1, nil
		case 2:
			return 8, nil
		}
	case 2: // binary input, event
		switch variation {
		case 1:
			return 8, nil
		case 2:
			return 56, nil
		case 3:
			return 24, nil
		}
	case 3: // double-bit binary input, static
		switch variation {
		case 1:
			return 2, nil
		case 2:
			return 8, nil
		}
	case 4: // double-bit binary input, event
		switch variation {
		case 1:
			return 8, nil
		case 2:
			return 56, nil
		case 3:
			return 24, nil
		}
	case 10: // binary output, static
		switch variation {
		case 1:
			return 1, nil
		case 2:
			return 8, nil
		}
	case 11: // binary output, event
		switch variation {
		case 1:
			return 8, nil
		case 2:
			return 56, nil
		}
	case 12: // binary output command (CROB / pattern control block)
		switch variation {
		case 1, 2:
			return 88, nil
		case 3:
			return 8, nil
		}
	case 20: // counter, static
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 5:
			return 32, nil
		case 6:
			return 16, nil
		}
	case 21: // frozen counter, static
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 5:
			return 88, nil
		case 6:
			return 72, nil
		case 9:
			return 32, nil
		case 10:
			return 16, nil
		}
	case 22: // counter, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 5:
			return 88, nil
		case 6:
			return 72, nil
		}
	case 23: // frozen counter, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 5:
			return 88, nil
		case 6:
			return 72, nil
		}
	case 30: // analog input, static
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 32, nil
		case 4:
			return 16, nil
		case 5:
			return 40, nil
		case 6:
			return 72, nil
		}
	case 31: // frozen analog input, static
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 88, nil
		case 4:
			return 72, nil
		case 5:
			return 32, nil
		case 6:
			return 16, nil
		case 7:
			return 40, nil
		case 8:
			return 72, nil
		}
	case 32: // analog input, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 88, nil
		case 4:
			return 72, nil
		case 5:
			return 40, nil
		case 6:
			return 72, nil
		case 7:
			return 88, nil
		case 8:
			return 120, nil
		}
	case 33: // frozen analog input, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 88, nil
		case 4:
			return 72, nil
		case 5:
			return 40, nil
		case 6:
			return 72, nil
		case 7:
			return 88, nil
		case 8:
			return 120, nil
		}
	case 40: // analog output status, static
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 40, nil
		case 4:
			return 72, nil
		}
	case 41: // analog output, command block
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 40, nil
		case 4:
			return 72, nil
		}
	case 42: // analog output, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 88, nil
		case 4:
			return 72, nil
		case 5:
			return 40, nil
		case 6:
			return 72, nil
		case 7:
			return 88, nil
		case 8:
			return 120, nil
		}
	case 43: // analog output command, event
		switch variation {
		case 1:
			return 40, nil
		case 2:
			return 24, nil
		case 3:
			return 88, nil
		case 4:
			return 72, nil
		case 5:
			return 40, nil
		case 6:
			return 72, nil
		case 7:
			return 88, nil
		case 8:
			return 120, nil
		}
	case 50: // time and date
		switch variation {
		case 1, 3:
			return 48, nil
		case 4:
			return 64, nil
		}
	case 51: // time and date CTO
		switch variation {
		case 1, 2:
			return 48, nil
		}
	case 52: // time delay
		switch variation {
		case 1, 2:
			return 16, nil
		}
	case 60: // class data, range-only, never carries object bytes
		return 0, nil
	case 80: // internal indications
		if variation == 1 {
			return 1, nil
		}
	case 110, 111: // octet string static/event: variation is the string length in bytes
		if variation > 0 {
			return int(variation) * 8, nil
		}
	}
	return 0, ErrUnsupportedObject
}
